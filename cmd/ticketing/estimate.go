package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/ticketing/internal/api/dto"
	"github.com/helpdesk-labs/ticketing/internal/client"
	"github.com/helpdesk-labs/ticketing/internal/domain"
)

var (
	estimateAPI      string
	estimateService  string
	estimateUser     string
	estimatePassword string
	estimateCookie   string
	estimateTickets  []string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Log in, obtain a capability token and request estimates",
	Example: `  ticketing estimate --user root --password secret \
    --ticket "maintenance:Printer jam" --ticket "payment:Refund"`,
	Args: cobra.NoArgs,
	RunE: runEstimate,
}

func init() {
	flags := estimateCmd.Flags()
	flags.StringVar(&estimateAPI, "api", "http://127.0.0.1:3001", "session and ticket service URL")
	flags.StringVar(&estimateService, "estimator", "http://127.0.0.1:3002", "estimation service URL")
	flags.StringVar(&estimateUser, "user", "", "login name")
	flags.StringVar(&estimatePassword, "password", "", "password")
	flags.StringVar(&estimateCookie, "cookie", "ticketing_session", "session cookie name")
	flags.StringArrayVar(&estimateTickets, "ticket", nil, "`category:title` to estimate (repeatable)")
	_ = estimateCmd.MarkFlagRequired("user")
	_ = estimateCmd.MarkFlagRequired("password")
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	tickets, err := parseTickets(estimateTickets)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	session := client.New(estimateAPI, estimateCookie)
	if _, err := session.Login(ctx, estimateUser, estimatePassword); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() { _ = session.Logout(ctx) }()

	estimates, err := client.NewEstimatorClient(estimateService, session).Estimate(ctx, tickets)
	if err != nil {
		return fmt.Errorf("estimate: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(estimates)
}

func parseTickets(raw []string) ([]dto.EstimationTicket, error) {
	if len(raw) == 0 {
		return nil, errors.New("at least one --ticket is required")
	}
	tickets := make([]dto.EstimationTicket, 0, len(raw))
	for _, entry := range raw {
		category, title, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("ticket %q: expected category:title", entry)
		}
		tickets = append(tickets, dto.EstimationTicket{
			Title:    strings.TrimSpace(title),
			Category: domain.Category(strings.TrimSpace(category)),
		})
	}
	return tickets, nil
}
