/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/SvenDH/go-circle-evolution/server"
)

var tokenSecret string

var tokenCmd = &cobra.Command{
	Use:   "token NAME",
	Short: "Create an access token for the progress stream",
	Long: `Create a token for evolve --listen --secret. Clients pass it as
?token=... on /ws, /status and /champion.png.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tok, err := server.NewAuth(tokenSecret).CreateJWTToken(args[0])
		if err != nil {
			log.Fatal(err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tok); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSecret, "secret", os.Getenv("CIRCLE_EVOLUTION_SECRET"), "Signing secret shared with evolve --secret")
}
