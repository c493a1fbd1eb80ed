package commands

import (
	"cpkit/lib/util/serviceutil"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in and saves the session for later commands.",
	Run: func(cmd *cobra.Command, args []string) {
		creds, err := current.credentials(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read credentials", err)
		}
		store, err := current.sessionStore()
		if err != nil {
			serviceutil.Fatal("failed to open session store", err)
		}
		issued, err := current.client.Login(cmd.Context(), creds)
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}
		err = store.Save(cmd.Context(), issued)
		if err != nil {
			serviceutil.Fatal("failed to save session", err)
		}
		fmt.Printf("Logged in as %s.\n", creds.Username)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forgets the saved session.",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := current.sessionStore()
		if err != nil {
			serviceutil.Fatal("failed to open session store", err)
		}
		err = store.Clear(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to clear session", err)
		}
		fmt.Println("Logged out.")
	},
}
