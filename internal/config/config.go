// Package config resolves peka settings from defaults, an optional YAML file,
// PEKA_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nalsan/peka/internal/logging"
	"github.com/nalsan/peka/krypto"
	"github.com/nalsan/peka/store"
)

// EnvPrefix is prepended to every environment override, e.g. PEKA_VAULT_DIR.
const EnvPrefix = "PEKA"

// Keys understood by Load.
const (
	KeyVaultDir       = "vault.dir"
	KeyKDFMemoryKiB   = "kdf.memory_kib"
	KeyKDFTimeCost    = "kdf.time_cost"
	KeyKDFParallelism = "kdf.parallelism"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyJournalEnabled = "journal.enabled"
	KeyJournalPath    = "journal.path"
	KeyJournalKeep    = "journal.keep"
	KeyPolicyEnforce  = "policy.enforce"
	KeyPolicyMinScore = "policy.min_score"
	KeyPolicyHIBP     = "policy.hibp"
	KeyClipboardClear = "clipboard.clear_after"
)

// Config is the resolved configuration.
type Config struct {
	VaultDir string
	KDF      krypto.KDFParams
	Log      logging.Options
	Journal  JournalConfig
	Policy   PolicyConfig

	// ClipboardClear is how long a copied password stays on the clipboard.
	ClipboardClear time.Duration
}

// JournalConfig controls the operation journal.
type JournalConfig struct {
	Enabled bool
	Path    string
	// Keep is how many events survive pruning; zero keeps everything.
	Keep int
}

// PolicyConfig controls the master password policy applied on create.
type PolicyConfig struct {
	Enforce  bool
	MinScore int
	HIBP     bool
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyVaultDir, store.DefaultDir())
	v.SetDefault(KeyKDFMemoryKiB, krypto.DefaultMemoryKiB)
	v.SetDefault(KeyKDFTimeCost, krypto.DefaultTimeCost)
	v.SetDefault(KeyKDFParallelism, krypto.DefaultParallelism)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, logging.FormatConsole)
	v.SetDefault(KeyJournalEnabled, true)
	v.SetDefault(KeyJournalPath, "")
	v.SetDefault(KeyJournalKeep, 1000)
	v.SetDefault(KeyPolicyEnforce, true)
	v.SetDefault(KeyPolicyMinScore, 3)
	v.SetDefault(KeyPolicyHIBP, false)
	v.SetDefault(KeyClipboardClear, 20*time.Second)
}

// ReadFile points v at cfgFile, or searches $HOME and the working directory
// for .peka.yaml, and enables PEKA_* environment overrides. A missing file
// is not an error.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".peka")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// Load resolves and validates the configuration held by v. Defaults are
// registered first so Load works on a bare viper instance.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	dir := strings.TrimSpace(v.GetString(KeyVaultDir))
	if dir == "" {
		return Config{}, errors.New("vault.dir must not be empty")
	}
	dir = expandHome(dir)

	kdf := krypto.DefaultKDFParams()
	kdf.MemoryKiB = v.GetUint32(KeyKDFMemoryKiB)
	kdf.TimeCost = v.GetUint32(KeyKDFTimeCost)
	kdf.Parallelism = v.GetUint32(KeyKDFParallelism)
	if err := kdf.Validate(); err != nil {
		return Config{}, fmt.Errorf("kdf settings: %w", err)
	}

	logOpts := logging.Options{
		Level:  v.GetString(KeyLogLevel),
		Format: v.GetString(KeyLogFormat),
	}
	if err := logOpts.Validate(); err != nil {
		return Config{}, fmt.Errorf("log settings: %w", err)
	}

	journal := JournalConfig{
		Enabled: v.GetBool(KeyJournalEnabled),
		Path:    strings.TrimSpace(v.GetString(KeyJournalPath)),
		Keep:    v.GetInt(KeyJournalKeep),
	}
	if journal.Keep < 0 {
		return Config{}, fmt.Errorf("journal.keep must not be negative, got %d", journal.Keep)
	}
	if journal.Path == "" {
		journal.Path = filepath.Join(filepath.Dir(filepath.Clean(dir)), "journal.db")
	} else {
		journal.Path = expandHome(journal.Path)
	}

	policy := PolicyConfig{
		Enforce:  v.GetBool(KeyPolicyEnforce),
		MinScore: v.GetInt(KeyPolicyMinScore),
		HIBP:     v.GetBool(KeyPolicyHIBP),
	}
	if policy.MinScore < 0 || policy.MinScore > 4 {
		return Config{}, fmt.Errorf("policy.min_score must be between 0 and 4, got %d", policy.MinScore)
	}

	clearAfter := v.GetDuration(KeyClipboardClear)
	if clearAfter < 0 {
		return Config{}, fmt.Errorf("clipboard.clear_after must not be negative")
	}

	return Config{
		VaultDir:       dir,
		KDF:            kdf,
		Log:            logOpts,
		Journal:        journal,
		Policy:         policy,
		ClipboardClear: clearAfter,
	}, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
