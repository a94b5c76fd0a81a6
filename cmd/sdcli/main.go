package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sdcli/internal/app"
	"sdcli/internal/bridge"
	"sdcli/internal/config"
	"sdcli/internal/gh"
	"sdcli/internal/model"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	// An interrupt aborts in-flight supervisor waits gracefully instead of
	// leaving an orphaned gateway behind.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Bridge", "StopBridge").
func newApp(operation string) (*app.App, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// newGHClient resolves GitHub credentials and builds an API client.
func newGHClient() (*gh.Client, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}

	username, token, err := gh.ResolveCredentials(cfg.BaseDir)
	if err != nil {
		return nil, err
	}

	return gh.NewClient(cfg.GitHub, username, token), nil
}

var rootCmd = &cobra.Command{
	Use:   "sdcli",
	Short: "A command-line utility for executing essential but laborious tasks",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and credential keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := app.InitWorkspace(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Registry:     %s (%s)\n", cfg.Registry.Type, cfg.Registry.DataDir)
		fmt.Printf("Gateway:      %s\n", cfg.Supervisor.GatewayCommand)
		fmt.Printf("Listen:       %s ports %d-%d\n", cfg.Bridge.ListenHost, cfg.Bridge.PortMin, cfg.Bridge.PortMax)
		fmt.Printf("Organization: %s\n", cfg.GitHub.Organization)
		return nil
	},
}

// s3 command
var s3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Bridge S3 buckets to SFTP-accessible file systems",
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Start a bridge exposing an S3 bucket over SFTP",
	Long: `Bridges an S3 object store (bucket) to an SFTP-accessible file system.

The first time a bucket is bridged you must supply an access key pair; it is
stored locally so the bridge can later be addressed by its fingerprint alone.
An already-running bridge is left untouched unless --force-restart is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fingerprint, _ := cmd.Flags().GetString("fingerprint")
		bucket, _ := cmd.Flags().GetString("bucket")
		accessKeyID, _ := cmd.Flags().GetString("access-key-id")
		secretAccessKey, _ := cmd.Flags().GetString("secret-access-key")
		listenPort, _ := cmd.Flags().GetInt("listen-port")
		forceRestart, _ := cmd.Flags().GetBool("force-restart")

		req, err := buildBridgeRequest(fingerprint, bucket, accessKeyID, secretAccessKey)
		if err != nil {
			return err
		}

		a, err := newApp("Bridge")
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.Service().Bridge(cmd.Context(), req, forceRestart, listenPort)
		if err != nil {
			return err
		}

		fmt.Printf("Bridge %s is running.\n", record.Fingerprint)
		fmt.Printf("Connect to your bucket via SFTP at %s\n", record.Endpoint())
		fmt.Println("Keep the fingerprint to address this bridge without re-supplying bucket and credentials.")
		return nil
	},
}

var stopBridgeCmd = &cobra.Command{
	Use:   "stop-bridge FINGERPRINT",
	Short: "Shut down an existing bridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("StopBridge")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().StopBridge(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("Bridge %s stopped. Restart it with `sdcli s3 bridge --fingerprint %s`.\n", args[0], args[0])
		return nil
	},
}

var deleteBridgeCmd = &cobra.Command{
	Use:   "delete-bridge FINGERPRINT",
	Short: "Shut down and permanently remove an existing bridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteBridge")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().DeleteBridge(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("Bridge %s removed.\n", args[0])
		return nil
	},
}

var listBridgesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all bridges",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBridges")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Service().List(cmd.Context())
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No bridges configured.")
			return nil
		}

		for _, r := range records {
			fmt.Println(app.FormatRecord(r))
		}
		return nil
	},
}

// buildBridgeRequest enforces the fingerprint/bucket mutual exclusivity and
// prompts for the secret interactively when only the key ID was given.
func buildBridgeRequest(fingerprint, bucket, accessKeyID, secretAccessKey string) (bridge.BridgeRequest, error) {
	switch {
	case fingerprint != "" && bucket != "":
		return bridge.BridgeRequest{}, fmt.Errorf("--fingerprint and --bucket are mutually exclusive")
	case fingerprint != "":
		if accessKeyID != "" || secretAccessKey != "" {
			return bridge.BridgeRequest{}, fmt.Errorf("--fingerprint addresses an existing bridge; credentials are not accepted")
		}
		return bridge.ByFingerprint(fingerprint)
	case bucket != "":
		if accessKeyID != "" && secretAccessKey == "" && term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Print("  Secret access key: ")
			secret, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return bridge.BridgeRequest{}, fmt.Errorf("reading secret access key: %w", err)
			}
			secretAccessKey = string(secret)
		}

		var creds *model.Credentials
		if accessKeyID != "" || secretAccessKey != "" {
			creds = &model.Credentials{AccessKeyID: accessKeyID, SecretAccessKey: secretAccessKey}
		}
		return bridge.ByBucket(bucket, creds)
	default:
		return bridge.BridgeRequest{}, fmt.Errorf("supply either --fingerprint of an existing bridge or --bucket to configure a new one")
	}
}

// gh command
var ghCmd = &cobra.Command{
	Use:   "gh",
	Short: "Does things with GitHub's v3 REST API",
}

var ghAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store GitHub credentials for future commands",
	Long: `Authenticates your machine with GitHub so any future requests are executed as
yourself. To avoid saving your credentials on your host machine, you may set
the GH_USERNAME and GH_TOKEN environment variables instead.

Credentials are stored in plain text, owner-readable only, under the sdcli
base directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Warning: this will overwrite any previously saved GitHub credentials.")

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("  Username: ")
		username, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading username: %w", err)
		}

		fmt.Print("  Personal access token: ")
		token, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}

		if err := gh.SaveCredentials(cfg.BaseDir, strings.TrimSpace(username), strings.TrimSpace(string(token))); err != nil {
			return err
		}

		fmt.Printf("Credentials written to %s\n", gh.CredentialsPath(cfg.BaseDir))
		return nil
	},
}

var ghInviteCmd = &cobra.Command{
	Use:   "invite [EMAIL]",
	Short: "Invite one or more people to the organization",
	Long: `Invites the given email or list of emails to the GitHub organization. A list
of emails must be a UTF-8 text file, where each email is on a separate line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromFile, _ := cmd.Flags().GetString("from-file")
		teamSlugs, _ := cmd.Flags().GetStringSlice("team-slugs")

		var email string
		if len(args) > 0 {
			email = args[0]
		}
		if (email == "" && fromFile == "") || (email != "" && fromFile != "") {
			return fmt.Errorf("supply either an email or --from-file, not both")
		}

		emails := []string{email}
		if fromFile != "" {
			var err error
			emails, err = readLines(fromFile)
			if err != nil {
				return err
			}
		}

		client, err := newGHClient()
		if err != nil {
			return err
		}

		teamIDs, err := client.ResolveTeamIDs(cmd.Context(), teamSlugs)
		if err != nil {
			return err
		}

		for _, e := range emails {
			if err := client.Invite(cmd.Context(), e, teamIDs); err != nil {
				return err
			}
		}

		fmt.Printf("Successfully invited %d person(s) to %s.\n", len(emails), client.Org())
		return nil
	},
}

var ghAssignTeamsCmd = &cobra.Command{
	Use:   "assign-teams CSV",
	Short: "Assign users to organization teams from a CSV",
	Long:  `Assigns each user to their GitHub organization team using the provided CSV of username,team rows.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening assignments file: %w", err)
		}
		defer f.Close()

		assignments, err := gh.ReadAssignments(f)
		if err != nil {
			return err
		}

		client, err := newGHClient()
		if err != nil {
			return err
		}

		for _, a := range assignments {
			if err := client.AssignTeam(cmd.Context(), a.Username, a.TeamSlug); err != nil {
				return err
			}
		}

		fmt.Printf("Assigned %d teamship(s) in %s.\n", len(assignments), client.Org())
		return nil
	},
}

// readLines reads a line-delimited text file, stripping whitespace and
// skipping blank lines.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// s3 subcommands
	bridgeCmd.Flags().String("fingerprint", "", "Fingerprint of an existing bridge; mutually exclusive with --bucket")
	bridgeCmd.Flags().String("bucket", "", "Bucket to expose via SFTP; requires credentials the first time")
	bridgeCmd.Flags().String("access-key-id", "", "AWS access key ID, required when first bridging a bucket")
	bridgeCmd.Flags().String("secret-access-key", "", "AWS secret access key, required when first bridging a bucket")
	bridgeCmd.Flags().Int("listen-port", 0, "Specific listen port for a new bridge (default: lowest free port)")
	bridgeCmd.Flags().Bool("force-restart", false, "Restart the bridge even if it is already running")
	s3Cmd.AddCommand(bridgeCmd)
	s3Cmd.AddCommand(stopBridgeCmd)
	s3Cmd.AddCommand(deleteBridgeCmd)
	s3Cmd.AddCommand(listBridgesCmd)

	// gh subcommands
	ghInviteCmd.Flags().StringSlice("team-slugs", nil, "Organization teams to which to invite the person(s)")
	ghInviteCmd.Flags().String("from-file", "", "Line-delimited text file of email addresses to invite")
	ghCmd.AddCommand(ghAuthCmd)
	ghCmd.AddCommand(ghInviteCmd)
	ghCmd.AddCommand(ghAssignTeamsCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(s3Cmd)
	rootCmd.AddCommand(ghCmd)
}
