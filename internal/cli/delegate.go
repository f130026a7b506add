package cli

import (
	"context"
	"errors"
	"fmt"
	"github.com/spf13/cobra"
	"wallet/internal/delegates"
	"wallet/internal/models"
)

var errNoEtcd = errors.New("etcd.endpoints is not configured")

type delegateFlags struct {
	port int
}

var delegateOpts delegateFlags

func init() {
	delegateRegisterCmd.Flags().IntVarP(&delegateOpts.port, "port", "p", 0, "node HTTP port, the node.port setting when omitted")
	delegateCmd.AddCommand(delegateRegisterCmd)
	delegateCmd.AddCommand(delegateListCmd)
	rootCmd.AddCommand(delegateCmd)
}

var delegateCmd = &cobra.Command{
	Use:   "delegate",
	Short: "Manages the delegate registry in etcd",
}

var delegateRegisterCmd = &cobra.Command{
	Use:   "register [address] [host]",
	Short: "Registers a delegate node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := openEtcdSource()
		if err != nil {
			return err
		}
		defer source.Close()

		node := models.Node{
			Address:  args[0],
			Endpoint: models.Endpoint{Host: args[1], Port: delegateOpts.port},
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), app.provider.Current().Etcd.DialTimeout)
		defer cancel()

		if err := source.Register(ctx, node); err != nil {
			return err
		}
		app.logger.Info("delegate registered", "address", node.Address, "host", node.Endpoint.Host)
		return nil
	},
}

var delegateListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the delegate nodes in submission order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := openEtcdSource()
		if err != nil {
			return err
		}
		defer source.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), app.provider.Current().Etcd.DialTimeout)
		defer cancel()

		nodes, err := source.Load(ctx)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s:%d\n", n.Address, n.Endpoint.Host, n.Endpoint.Port)
		}
		return nil
	},
}

func openEtcdSource() (*delegates.EtcdSource, error) {
	cfg := app.provider.Current()
	if len(cfg.Etcd.Endpoints) == 0 {
		return nil, errNoEtcd
	}
	return delegates.NewEtcdSource(cfg.Etcd.Endpoints, cfg.Etcd.DialTimeout, cfg.Etcd.Prefix, app.logger)
}
