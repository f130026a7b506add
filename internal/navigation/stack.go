// Package navigation keeps the page stack of the wallet views.
package navigation

import (
	"log/slog"
	"sync"
)

const (
	PageWallet     = "wallet"
	PageSendTokens = "send-tokens"
)

type Stack struct {
	logger *slog.Logger

	mu    sync.Mutex
	pages []string
}

// NewStack creates a stack with root as its bottom page.
func NewStack(root string, logger *slog.Logger) *Stack {
	return &Stack{
		logger: logger,
		pages:  []string{root},
	}
}

func (s *Stack) Push(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page)
	s.logger.Debug("navigate", "page", page, "depth", len(s.pages))
}

// GoBack pops the current page. The root page is never popped.
func (s *Stack) GoBack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) == 1 {
		return
	}
	s.pages = s.pages[:len(s.pages)-1]
	s.logger.Debug("navigate back", "page", s.pages[len(s.pages)-1], "depth", len(s.pages))
}

func (s *Stack) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[len(s.pages)-1]
}

func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}
