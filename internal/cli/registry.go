package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/nahidhasan98/review-relay/internal/config"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/nahidhasan98/review-relay/internal/registry"
	"github.com/nahidhasan98/review-relay/internal/validation"
	"github.com/spf13/cobra"
)

var (
	// registryRepoID and registryChatID are the flags of "registry add"
	registryRepoID int64
	registryChatID int64

	// registryJSON switches "registry list" to JSON output
	registryJSON bool
)

// registryCmd groups the registry management commands
var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage repository to chat mappings",
	Long: `Manage which chat receives the reviews of which repository.

The backend and path come from REGISTRY_BACKEND and REGISTRY_PATH.`,
}

var registryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register or replace the chat of a repository",
	Args:  cobra.NoArgs,
	RunE:  runRegistryAdd,
}

var registryGetCmd = &cobra.Command{
	Use:   "get <repo-id>",
	Short: "Show the chat registered for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryGet,
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all mappings",
	Args:  cobra.NoArgs,
	RunE:  runRegistryList,
}

var registryImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Copy the mappings of a JSON registry file into the configured registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryImport,
}

func init() {
	registryAddCmd.Flags().Int64Var(&registryRepoID, "repo-id", 0,
		"GitHub repository id")
	registryAddCmd.Flags().Int64Var(&registryChatID, "chat-id", 0,
		"Chat id (negative for groups)")
	_ = registryAddCmd.MarkFlagRequired("repo-id")
	_ = registryAddCmd.MarkFlagRequired("chat-id")

	registryListCmd.Flags().BoolVar(&registryJSON, "json", false,
		"Print mappings as JSON")

	registryCmd.AddCommand(registryAddCmd)
	registryCmd.AddCommand(registryGetCmd)
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryImportCmd)
}

// openRegistry opens the configured registry with logging on stderr
func openRegistry(cmd *cobra.Command) (registry.Registry, error) {
	cfg, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return registry.Open(cfg.Registry, log)
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	req := &models.RegisterRequest{RepoID: registryRepoID, ChatID: registryChatID}
	if appErr := validation.New().ValidateRegisterRequest(req); appErr != nil {
		return appErr
	}

	reg, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.Put(context.Background(), req.RepoID, req.ChatID); err != nil {
		return fmt.Errorf("failed to register repository: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Repository %d -> chat %d\n", req.RepoID, req.ChatID)
	return nil
}

func runRegistryGet(cmd *cobra.Command, args []string) error {
	repoID, appErr := validation.New().ParseRepoID(args[0])
	if appErr != nil {
		return appErr
	}

	reg, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer reg.Close()

	chat, err := reg.Get(context.Background(), repoID)
	if err != nil {
		return fmt.Errorf("failed to look up repository: %w", err)
	}
	if chat.IsNone() {
		return fmt.Errorf("repository %d is not registered", repoID)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatInt(chat.UnwrapOr(0), 10))
	return nil
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer reg.Close()

	mappings, err := reg.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list mappings: %w", err)
	}

	return printMappings(cmd.OutOrStdout(), mappings, registryJSON)
}

func runRegistryImport(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer reg.Close()

	src, err := registry.OpenFile(args[0], logger.Nop())
	if err != nil {
		return err
	}
	defer src.Close()

	n, err := registry.Copy(context.Background(), reg, src)
	if err != nil {
		return fmt.Errorf("import stopped after %d mappings: %w", n, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d mappings from %s\n", n, args[0])
	return nil
}

// printMappings writes mappings as an aligned table or as JSON
func printMappings(out io.Writer, mappings []models.RepoChatMapping, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(mappings)
	}

	if len(mappings) == 0 {
		fmt.Fprintln(out, "No repositories registered.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPO ID\tCHAT ID")
	for _, m := range mappings {
		fmt.Fprintf(tw, "%d\t%d\n", m.RepoID, m.ChatID)
	}
	return tw.Flush()
}
