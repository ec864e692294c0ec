package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
	"github.com/Tigran0000/inveni/internal/settings"
	"github.com/Tigran0000/inveni/internal/vererr"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get and set repository settings",
	Long: `Get and set values in settings.json.

Keys:
  backup_folder      directory for snapshots and rescue copies
  max_backups        per-file retention quota (positive integer)
  logging_enabled    write operational events to app.log (true/false)
  username           default commit author
  time_format.utc    display layout for UTC timestamps
  time_format.local  display layout for local timestamps

Examples:
  inveni config --list
  inveni config max_backups
  inveni config max_backups 10`,
	RunE: runConfig,
}

var configList bool

func init() {
	configCmd.Flags().BoolVar(&configList, "list", false, "List all settings")
}

func runConfig(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if configList || len(args) == 0 {
		return listSettings(eng.Settings())
	}
	if len(args) == 1 {
		value, err := getSetting(eng.Settings(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	}
	if len(args) == 2 {
		cfg, err := setSetting(eng.Settings(), args[0], args[1])
		if err != nil {
			return err
		}
		return eng.UpdateSettings(cfg)
	}
	return vererr.BadRequest("config", "", fmt.Errorf("invalid usage, see: inveni config --help"))
}

func listSettings(cfg settings.Settings) error {
	fmt.Println(colors.SectionHeader("Repository settings:"))
	fmt.Printf("  backup_folder     = %s\n", colors.InfoText(cfg.BackupFolder))
	fmt.Printf("  max_backups       = %s\n", colors.InfoText(strconv.Itoa(cfg.MaxBackups)))
	fmt.Printf("  logging_enabled   = %s\n", colors.InfoText(strconv.FormatBool(cfg.LoggingEnabled)))
	fmt.Printf("  username          = %s\n", colors.InfoText(cfg.Username))
	fmt.Printf("  time_format.utc   = %s\n", colors.InfoText(cfg.TimeFormat.UTC))
	fmt.Printf("  time_format.local = %s\n", colors.InfoText(cfg.TimeFormat.Local))
	return nil
}

func getSetting(cfg settings.Settings, key string) (string, error) {
	switch key {
	case "backup_folder":
		return cfg.BackupFolder, nil
	case "max_backups":
		return strconv.Itoa(cfg.MaxBackups), nil
	case "logging_enabled":
		return strconv.FormatBool(cfg.LoggingEnabled), nil
	case "username":
		return cfg.Username, nil
	case "time_format.utc":
		return cfg.TimeFormat.UTC, nil
	case "time_format.local":
		return cfg.TimeFormat.Local, nil
	default:
		return "", vererr.BadRequest("config", "", fmt.Errorf("unknown settings key: %s", key))
	}
}

func setSetting(cfg settings.Settings, key, value string) (settings.Settings, error) {
	switch key {
	case "backup_folder":
		cfg.BackupFolder = value
	case "max_backups":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return cfg, vererr.BadRequest("config", "", fmt.Errorf("max_backups must be a positive integer, got %q", value))
		}
		cfg.MaxBackups = n
	case "logging_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return cfg, vererr.BadRequest("config", "", fmt.Errorf("logging_enabled must be true or false, got %q", value))
		}
		cfg.LoggingEnabled = b
	case "username":
		cfg.Username = value
	case "time_format.utc":
		cfg.TimeFormat.UTC = value
	case "time_format.local":
		cfg.TimeFormat.Local = value
	default:
		return cfg, vererr.BadRequest("config", "", fmt.Errorf("unknown settings key: %s", key))
	}
	return cfg, nil
}
