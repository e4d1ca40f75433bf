package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage server connection settings",
		Long:  "Store, clear, and inspect the API URL and admin token used by the ragchat CLI",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var adminToken string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the API URL and admin token",
		Long:  "Store the API URL and admin token in global config (~/.config/ragchat/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("admin-token") {
				fmt.Fprint(cmd.OutOrStdout(), "Enter admin token (empty for none): ")
				input, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("failed to read admin token: %w", err)
				}
				adminToken = strings.TrimSpace(input)
			}
			return runAuthLogin(cmd.OutOrStdout(), adminToken, apiURL)
		},
	}

	cmd.Flags().StringVar(&adminToken, "admin-token", "", "Admin token for ingestion endpoints")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored settings",
		Long:  "Remove stored settings from global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored settings removed")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the effective connection settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAuthStatus(cmd.OutOrStdout(), outputJSON)
		},
	}
}

func runAuthLogin(out io.Writer, adminToken, apiURL string) error {
	apiURL = strings.TrimSpace(apiURL)
	if !strings.HasPrefix(apiURL, "http://") && !strings.HasPrefix(apiURL, "https://") {
		return fmt.Errorf("invalid API URL %q (expected http:// or https://)", apiURL)
	}

	config := &GlobalConfig{
		APIURL:     apiURL,
		AdminToken: adminToken,
	}

	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Fprintln(out, "Settings saved")
	return nil
}

func runAuthStatus(out io.Writer, outputJSON bool) error {
	source, cfg := ResolveConfig()

	if outputJSON {
		status := map[string]any{
			"source":    string(source),
			"api_url":   cfg.APIURL,
			"has_token": cfg.AdminToken != "",
		}
		if cfg.AdminToken != "" {
			status["admin_token"] = maskToken(cfg.AdminToken)
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Source: %s\n", source)
	fmt.Fprintf(out, "API URL: %s\n", cfg.APIURL)
	if cfg.AdminToken == "" {
		fmt.Fprintln(out, "Admin token: not set")
	} else {
		fmt.Fprintf(out, "Admin token: %s\n", maskToken(cfg.AdminToken))
	}
	return nil
}

func maskToken(token string) string {
	if len(token) < 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
