package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/crowdsim/logging"
)

// Read reads a config from the given file. ${VAR} references in the file are expanded from the
// environment before parsing.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// Fields missing from the input keep their defaults; unknown fields are an error.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var attributes map[string]interface{}
	if err := json.NewDecoder(r).Decode(&attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}

	cfg := Default()
	cfg.ConfigFilePath = originalPath
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &cfg,
		ErrorUnused: true,
		ZeroFields:  true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}

	logger.Debugw("read config",
		"path", originalPath,
		"objects", cfg.Objects,
		"tree_policy", cfg.TreePolicy,
		"broad_phase", cfg.Collision.BroadPhase)
	return &cfg, nil
}
