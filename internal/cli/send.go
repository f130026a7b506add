package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/spf13/cobra"
	"os/signal"
	"syscall"
	"wallet/internal/events"
	"wallet/internal/form"
	"wallet/internal/navigation"
	"wallet/internal/notify"
	"wallet/internal/services"
	"wallet/internal/signer"
)

type sendFlags struct {
	dryRun bool
}

var sendOpts sendFlags

func init() {
	sendCmd.Flags().BoolVar(&sendOpts.dryRun, "dry-run", false, "build and sign the transaction without submitting it")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [recipient] [tokens]",
	Short: "Sends tokens from the default account and waits until the transaction settles",
	Args:  cobra.ExactArgs(2),
	RunE:  sendCmdRun,
}

func sendCmdRun(cmd *cobra.Command, args []string) error {
	f := form.New()
	f.SetRecipient(args[0])
	f.SetTokens(args[1])
	to, tokens, err := f.Validate()
	if err != nil {
		return err
	}

	if sendOpts.dryRun {
		return dryRun(cmd, to, tokens)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := app.logger
	pages := navigation.NewStack(navigation.PageWallet, log)
	pages.Push(navigation.PageSendTokens)

	sender := newSender(app.provider, notify.NewLogNotifier(log), pages, events.NewBus(log))
	outcome, err := sender.Send(ctx, to, tokens)
	if err != nil {
		return err
	}
	if !outcome.OK() {
		return fmt.Errorf("transaction %s rejected: %s", outcome.ID, outcome.Status)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d attempts)\n", outcome.Message(), outcome.ID, outcome.Attempts)
	return nil
}

// dryRun prints the signed transaction after checking its signature.
func dryRun(cmd *cobra.Command, to string, tokens uint64) error {
	account := app.provider.Current().DefaultAccount
	if account.PrivateKey == "" {
		return services.ErrNoAccount
	}

	tx, err := services.NewBuilder(signer.New()).Build(account, to, tokens)
	if err != nil {
		return err
	}
	if err := signer.Verify(tx); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tx)
}
