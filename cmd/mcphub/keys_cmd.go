package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mcphub-go/internal/vault"
)

// newKeysCommand returns the API key management command.
func newKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage per-server API keys stored in the OS keyring",
		Long:  "Store and retrieve API keys for api_key servers using the operating system's secure keyring (Keychain on macOS, Secret Service on Linux, WinCred on Windows)",
	}

	keysCmd.AddCommand(newKeysSetCommand())
	keysCmd.AddCommand(newKeysGetCommand())

	return keysCmd
}

func newKeysSetCommand() *cobra.Command {
	var fromEnv string

	cmd := &cobra.Command{
		Use:   "set <server-id> [value]",
		Short: "Store an API key for a server",
		Long:  "Store the API key used as the bearer credential for an api_key server. If no value is provided, reads it from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			serverID := args[0]

			var value string
			switch {
			case len(args) >= 2:
				value = args[1]
			case fromEnv != "":
				value = os.Getenv(fromEnv)
				if value == "" {
					return fmt.Errorf("environment variable %s is not set or empty", fromEnv)
				}
			default:
				fmt.Print("Enter API key: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				value = strings.TrimSpace(line)
			}

			if value == "" {
				return fmt.Errorf("API key cannot be empty")
			}

			kr := vault.NewKeyring()
			if !kr.Available() {
				return fmt.Errorf("OS keyring is not available")
			}
			if err := vault.StoreAPIKey(kr, serverID, value); err != nil {
				return fmt.Errorf("failed to store API key: %w", err)
			}

			fmt.Printf("API key for server '%s' stored in keyring\n", serverID)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromEnv, "from-env", "", "Read the API key from an environment variable")
	return cmd
}

func newKeysGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <server-id>",
		Short: "Check whether an API key is stored for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			serverID := args[0]

			kr := vault.NewKeyring()
			if !kr.Available() {
				return fmt.Errorf("OS keyring is not available")
			}

			key, err := vault.GetAPIKey(kr, serverID)
			if err != nil {
				return fmt.Errorf("no API key stored for server '%s'", serverID)
			}

			// Never print the key itself.
			fmt.Printf("API key for server '%s' is stored (%d characters)\n", serverID, len(key))
			return nil
		},
	}
}
