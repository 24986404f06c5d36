package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/m3rciful/leadbot/core/bootstrap"
	"github.com/m3rciful/leadbot/core/buildinfo"
	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/conversation"
	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/tenant"
)

// NewRootCommand builds the leadbot CLI: serve, tenants and check-config.
func NewRootCommand() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "leadbot",
		Short: "Multi-tenant lead capture bot for WhatsApp and Telegram",
		Long: `leadbot answers business chats with menus, books meetings, qualifies leads
and hands conversations over to support during working hours.

Configuration comes from a YAML file (--config or $` + DefaultConfigEnv + `) overlaid
by environment variables.`,
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to the YAML config file (default $"+DefaultConfigEnv+")")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the webhook server and enabled channels",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return Run(Options{ConfigPath: cfgPath, Context: cmd.Context()})
			},
		},
		&cobra.Command{
			Use:   "tenants",
			Short: "List configured tenants with hours and services",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(ResolveConfigPath(cfgPath, ""))
				if err != nil {
					return err
				}
				reg, err := bootstrap.LoadTenants(cfg.Bot)
				if err != nil {
					return err
				}
				return PrintTenants(cmd.OutOrStdout(), reg)
			},
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Validate configuration and print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(ResolveConfigPath(cfgPath, ""))
				if err != nil {
					return err
				}
				reg, err := bootstrap.LoadTenants(cfg.Bot)
				if err != nil {
					return err
				}
				if _, err := bootstrap.NewResolver(cfg.Bot, reg); err != nil {
					return err
				}
				PrintConfigSummary(cmd.OutOrStdout(), cfg, reg)
				return nil
			},
		},
	)
	return root
}

// PrintTenants writes one row per tenant.
func PrintTenants(w io.Writer, reg *tenant.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHOURS\tSERVICES\tSUPPORT")
	for _, id := range reg.IDs() {
		t := reg.Lookup(id)
		services := make([]string, 0, len(t.Services))
		for _, s := range t.Services {
			services = append(services, s.ID)
		}
		marker := ""
		if id == reg.DefaultID() {
			marker = " (default)"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\n",
			id, marker,
			t.Name.Get(lang.English),
			conversation.FormatHours(t.Hours, lang.English),
			strings.Join(services, ","),
			t.Support.Name,
		)
	}
	return tw.Flush()
}

// PrintConfigSummary writes the effective settings without secrets.
func PrintConfigSummary(w io.Writer, cfg *config.Config, reg *tenant.Registry) {
	fmt.Fprintf(w, "server:     %s%s\n", cfg.Server.Addr(), cfg.Server.WebhookPath)
	fmt.Fprintf(w, "whatsapp:   dry_run=%t signature_check=%t api=%s\n",
		cfg.WhatsApp.DryRun(), cfg.WhatsApp.AppSecret != "", cfg.WhatsApp.APIVersion)
	fmt.Fprintf(w, "telegram:   enabled=%t run_mode=%s\n", cfg.Telegram.Enabled, cfg.Telegram.RunMode)
	fmt.Fprintf(w, "bot:        require_language=%t default_language=%s routes=%d\n",
		cfg.Bot.RequireLanguage, cfg.Bot.DefaultLanguage, len(cfg.Bot.TenantRoutes))
	fmt.Fprintf(w, "session:    ttl=%dm dedupe=%ds sweep=%ds\n",
		cfg.Session.TTLMinutes, cfg.Session.DedupeWindowSeconds, cfg.Session.SweepIntervalSeconds)
	fmt.Fprintf(w, "records:    driver=%s log=%t\n", cfg.Records.Driver, cfg.Records.Log)
	fmt.Fprintf(w, "tenants:    %s (default %s)\n", strings.Join(reg.IDs(), ","), reg.DefaultID())
}
