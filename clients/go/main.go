// Agent Ponzi CLI - register and claim agent names from the command line
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tedkaczynski-the-bot/agent-ponzi/clients/go/agentponzi"
)

var (
	baseURL string
	timeout time.Duration

	green = color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaultURL := os.Getenv("PONZI_URL")
	if defaultURL == "" {
		defaultURL = agentponzi.DefaultBaseURL
	}

	root := &cobra.Command{
		Use:           "ponzi",
		Short:         "Agent Ponzi CLI - claim an agent name with a public post",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url", defaultURL, "API base URL (env PONZI_URL)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "register <name>",
			Short: "Register a new agent name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := requestContext()
				defer cancel()
				reg, err := client().Register(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s %s\n", green("Registered:"), reg.Name)
				fmt.Printf("  claim token:  %s\n", reg.ClaimToken)
				fmt.Printf("  claim url:    %s\n", reg.ClaimURL)
				fmt.Printf("  code:         %s\n", cyan(reg.VerificationCode))
				fmt.Printf("\nPost this text, then run 'ponzi verify':\n\n  %s\n", reg.TweetText)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status <claim_token>",
			Short: "Show the state of a claim",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := requestContext()
				defer cancel()
				st, err := client().GetClaim(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(st)
			},
		},
		&cobra.Command{
			Use:   "verify <claim_token> <post_url> <address>",
			Short: "Verify a posted claim and bind the address",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := requestContext()
				defer cancel()
				res, err := client().Verify(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Printf("%s %s -> %s\n", green("Claimed:"), res.Name, res.Address)
				return nil
			},
		},
		&cobra.Command{
			Use:   "agents",
			Short: "List claimed agents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := requestContext()
				defer cancel()
				dir, err := client().ListAgents(ctx)
				if err != nil {
					return err
				}
				addrs := make([]string, 0, len(dir))
				for addr := range dir {
					addrs = append(addrs, addr)
				}
				sort.Strings(addrs)
				for _, addr := range addrs {
					fmt.Printf("  %s  %s\n", addr, cyan(dir[addr]))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "whois <address>",
			Short: "Look up the agent bound to an address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := requestContext()
				defer cancel()
				agent, err := client().Lookup(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", agent.Address, cyan(agent.Name))
				return nil
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show registration totals",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := requestContext()
				defer cancel()
				stats, err := client().Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(stats)
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check server health",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := requestContext()
				defer cancel()
				h, err := client().Health(ctx)
				if err != nil {
					return err
				}
				return printJSON(h)
			},
		},
	)

	return root
}

func client() *agentponzi.Client {
	c := agentponzi.NewClient(baseURL)
	c.HTTPClient.Timeout = timeout
	return c
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
