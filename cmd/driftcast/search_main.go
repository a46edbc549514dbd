package main

import (
	"context"
	"fmt"
	"os"
	osignal "os/signal"

	"github.com/spf13/cobra"

	"github.com/driftcast/driftcast/internal/algo/arma"
	"github.com/driftcast/driftcast/internal/search"
)

// runSearch prints the full AIC candidate table for one window offset. It is
// a diagnostic: the run command never needs it, but it makes tie-breaks and
// candidate failures visible when a window's chosen order looks surprising.
func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := osignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	returns, symbol, err := loadReturns(ctx, cfg)
	if err != nil {
		return err
	}

	offset, _ := cmd.Flags().GetInt("offset")
	window, err := returns.Window(offset, cfg.Engine.WindowSize)
	if err != nil {
		return err
	}

	est := arma.NewEstimator()
	searcher, err := search.New(est, cfg.Engine.MaxP, cfg.Engine.MaxQ)
	if err != nil {
		return err
	}

	fmt.Printf("%s window [%d, %d) ending %s\n\n", symbol, offset, offset+cfg.Engine.WindowSize,
		returns.Date(offset+cfg.Engine.WindowSize-1).Format("2006-01-02"))
	fmt.Printf("%-8s %14s\n", "(p,q)", "AIC")
	for _, order := range searcher.Candidates() {
		fit, err := est.Fit(window, order)
		if err != nil {
			fmt.Printf("%-8s %14s\n", order, "failed")
			continue
		}
		fmt.Printf("%-8s %14.4f\n", order, fit.AIC)
	}

	best, err := searcher.Search(window)
	if err != nil {
		fmt.Println("\nno candidate fit successfully: window would degrade to hold")
		return nil
	}
	fmt.Printf("\nselected %s (AIC %.4f, %d/%d candidates failed)\n", best.Order, best.AIC, best.Failed, best.Tried)
	return nil
}
