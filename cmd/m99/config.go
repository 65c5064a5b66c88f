package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"
	"sigs.k8s.io/yaml"
)

// setFlagsFromConfigFile sets every flag named in the file that was not
// given on the command line.
func setFlagsFromConfigFile(ctx *cli.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	fileConfig := make(map[string]any)
	switch filepath.Ext(filePath) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fileConfig)
	case ".toml":
		err = toml.Unmarshal(data, &fileConfig)
	default:
		return errors.New("config files only accepted are .yaml and .toml")
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}

	for key, value := range fileConfig {
		if ctx.IsSet(key) {
			continue
		}
		if err := ctx.Set(key, configValue(value)); err != nil {
			return fmt.Errorf("failed setting %s flag with value=%v: %w", key, value, err)
		}
	}
	return nil
}

// configValue formats a decoded config value as a flag argument.
func configValue(value any) string {
	switch v := value.(type) {
	case float64:
		// yaml numbers arrive as float64
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		s := make([]string, len(v))
		for i, item := range v {
			s[i] = configValue(item)
		}
		return strings.Join(s, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
