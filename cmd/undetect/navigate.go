package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/browser"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/browser/sandbox"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/config"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/observability"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/session"
)

var useSandbox bool

var navigateCmd = &cobra.Command{
	Use:   "navigate <url> [url...]",
	Short: "Visit one or more URLs through an anti-detection session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Get()
		logger := observability.GetLogger()

		caps, shutdown, err := buildCapabilities(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer shutdown()

		pool := session.DefaultPool()
		ctrl := session.NewController(cfg, caps, logger, pool)
		if err := ctrl.Initialize(ctx); err != nil {
			return err
		}
		defer func() {
			_ = ctrl.Quit(context.Background())
		}()

		for _, url := range args {
			if err := ctrl.Navigate(ctx, url); err != nil {
				return err
			}
			title, err := caps.Page.Title(ctx)
			if err != nil {
				logger.Warn("could not read page title", zap.String("url", url), zap.Error(err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", url, title)
		}
		return nil
	},
}

// buildCapabilities picks the real chromedp driver or the in-process
// sandbox, returning the capability set and a shutdown hook.
func buildCapabilities(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.Capabilities, func(), error) {
	if useSandbox {
		page := sandbox.New(logger)
		return schemas.Capabilities{
			Navigator: page,
			Script:    page,
			Page:      page,
			Elements:  page,
		}, func() {}, nil
	}

	mgr, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return schemas.Capabilities{}, nil, fmt.Errorf("starting browser: %w", err)
	}
	driver, err := mgr.NewDriver(ctx)
	if err != nil {
		_ = mgr.Shutdown(context.Background())
		return schemas.Capabilities{}, nil, fmt.Errorf("opening driver: %w", err)
	}
	shutdown := func() {
		_ = mgr.Shutdown(context.Background())
	}
	return driver.Capabilities(), shutdown, nil
}

func init() {
	navigateCmd.Flags().BoolVar(&useSandbox, "sandbox", false, "use the in-process sandbox instead of Chrome")
	rootCmd.AddCommand(navigateCmd)
}
