package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yusufsyaifudin/tagihan/internal/logic/invoice"
	"github.com/yusufsyaifudin/tagihan/pkg/tabular"
	"github.com/yusufsyaifudin/tagihan/pkg/validator"
	"gopkg.in/yaml.v3"
)

const FileName = "tagihan.yml"

// Default is the configuration used for every key the file does not set.
func Default() Config {
	return Config{
		GroupBy: invoice.ColumnGroup,
		Input: Input{
			Encoding:  tabular.DefaultEncoding,
			SniffSize: tabular.DefaultSniffSize,
		},
		Message: Message{
			Details: invoice.DefaultDetails,
			Footer:  invoice.DefaultFooter,
		},
		Payee: Payee{
			Name:    "Polyteknikkojen Kuoron kannatusyhdistys ry",
			Bank:    "Nordea",
			Account: "FI14 1112 3000 3084 34",
		},
		Journal: Journal{
			Type: "none",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// DefaultPath is the config file next to the running executable.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return FileName
	}

	return filepath.Join(filepath.Dir(exe), FileName)
}

// Load decodes the YAML file at path over Default. A missing file is not an
// error, found tells whether it existed.
func Load(path string) (cfg Config, found bool, err error) {
	cfg = Default()

	fileContent, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, false, validate(cfg)
	}

	if err != nil {
		err = fmt.Errorf("error read file config %s: %w", path, err)
		return
	}

	found = true
	if len(bytes.TrimSpace(fileContent)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(fileContent))
		dec.KnownFields(true)
		if err = dec.Decode(&cfg); err != nil {
			err = fmt.Errorf("error decode file config %s: %w", path, err)
			return
		}
	}

	err = validate(cfg)
	return
}

func validate(cfg Config) error {
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
