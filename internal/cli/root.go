package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// session is the state shared by every command of one invocation
type session struct {
	cfg    *Config
	client *Client
	out    *Output
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	s := &session{cfg: DefaultConfig()}

	v := viper.New()
	v.SetEnvPrefix("TOPTEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "topten",
		Short: "CLI tool for the top ten trivia API",
		Long: `topten is a CLI tool for playing ranked-answer trivia against the JSON API.

It supports room management, game actions, and watching a room's state live
over a websocket.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Environment values fill flags that were not given explicitly
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				if !f.Changed && v.IsSet(f.Name) {
					_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
				}
			})
			if err := s.cfg.LoadPlayerID(); err != nil {
				return fmt.Errorf("load player id: %w", err)
			}
			s.client = NewClient(s.cfg.ServerURL, s.cfg.PlayerID)
			s.out = NewOutput(s.cfg.Output, cmd.OutOrStdout())
			return nil
		},
		SilenceUsage: true,
	}

	fs := rootCmd.PersistentFlags()
	fs.StringVar(&s.cfg.ServerURL, "server", s.cfg.ServerURL, "Server URL (env: TOPTEN_SERVER)")
	fs.StringVar(&s.cfg.PlayerID, "player", "", "Player ID sent with every request (env: TOPTEN_PLAYER)")
	fs.StringVar(&s.cfg.PlayerFile, "player-file", s.cfg.PlayerFile, "File holding the player ID (env: TOPTEN_PLAYER_FILE)")
	fs.StringVarP(&s.cfg.Output, "output", "o", s.cfg.Output, "Output format: text, json (env: TOPTEN_OUTPUT)")
	fs.BoolVarP(&s.cfg.Verbose, "verbose", "v", s.cfg.Verbose, "Verbose output")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
	})

	rootCmd.AddCommand(newPlayerCmd(s))
	rootCmd.AddCommand(newRoomCmd(s))
	rootCmd.AddCommand(newGameCmd(s))
	rootCmd.AddCommand(newWatchCmd(s))
	rootCmd.AddCommand(newHealthCmd(s))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
