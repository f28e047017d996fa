/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads application settings from appsettings files, .env
// files and ANVIL_* environment variables, and binds named sections to
// structs.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppFs is the filesystem config files are read from.
var AppFs = afero.NewOsFs()

const (
	ConfigName = "appsettings"
	EnvPrefix  = "ANVIL"
)

var dotEnvFiles = []string{".env", ".env.local"}

// DefaultSearchPaths returns the directories searched for appsettings.*.
func DefaultSearchPaths() []string {
	paths := []string{".", "./configs"}
	if home, err := homedir.Expand("~/.anvil"); err == nil {
		paths = append(paths, home)
	}
	return paths
}

// Load builds a viper instance over AppFs. A missing config file is not an
// error; every section can also be supplied through the environment.
func Load(paths ...string) (*viper.Viper, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(ConfigName)
	if len(paths) == 0 {
		paths = DefaultSearchPaths()
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// loadDotEnv exports variables from .env files found on AppFs. Variables that
// are already set win; .env.local overrides .env.
func loadDotEnv() error {
	preset := make(map[string]struct{})
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		preset[k] = struct{}{}
	}
	for _, name := range dotEnvFiles {
		data, err := afero.ReadFile(AppFs, name)
		if err != nil {
			continue
		}
		values, err := godotenv.UnmarshalBytes(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for k, val := range values {
			if _, ok := preset[k]; ok {
				continue
			}
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// Section decodes the section called name into a new T.
func Section[T any](v *viper.Viper, name string) (T, error) {
	var out T
	err := Bind(v, name, &out)
	return out, err
}

// Bind decodes the section called name into out, keeping the fields the
// section does not set. Each field can be overridden by
// ANVIL_<SECTION>_<FIELD>.
func Bind(v *viper.Viper, name string, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config section %s: target must be a pointer to struct, got %T", name, out)
	}
	key := strings.ToLower(name)
	if err := bindEnv(v, key, rv.Elem().Type()); err != nil {
		return err
	}

	section, ok := v.AllSettings()[key]
	if !ok {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(section); err != nil {
		return fmt.Errorf("failed to decode config section %s: %w", name, err)
	}
	return nil
}

func bindEnv(v *viper.Viper, prefix string, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := prefix + "." + strings.ToLower(fieldName(field))
		if field.Type.Kind() == reflect.Struct {
			if err := bindEnv(v, key, field.Type); err != nil {
				return err
			}
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

func fieldName(field reflect.StructField) string {
	tag, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
	if tag == "" || tag == "-" {
		return field.Name
	}
	return tag
}

var secretKeys = []string{"password", "pwd", "secret", "key", "connectionstring"}

// Dump renders the effective settings as YAML with secrets masked.
func Dump(v *viper.Viper) ([]byte, error) {
	return yaml.Marshal(mask(v.AllSettings()))
}

func mask(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, val := range settings {
		switch typed := val.(type) {
		case map[string]any:
			out[k] = mask(typed)
		default:
			if isSecret(k) && fmt.Sprint(val) != "" {
				out[k] = "******"
			} else {
				out[k] = val
			}
		}
	}
	return out
}

func isSecret(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}
