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

package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type jwtSettings struct {
	Key    string `mapstructure:"Key"`
	Issuer string `mapstructure:"Issuer"`
}

type testSettings struct {
	ConnectionString string        `mapstructure:"ConnectionString"`
	DBProvider       string        `mapstructure:"DBProvider"`
	Timeout          time.Duration `mapstructure:"Timeout"`
	MaxOpenConns     int           `mapstructure:"MaxOpenConns"`
	Jwt              jwtSettings   `mapstructure:"JwtSettings"`
}

const appsettings = `
TestSettings:
  ConnectionString: "Server=db;Database=app"
  DBProvider: mssql
  Timeout: 15s
  JwtSettings:
    Key: file-key
    Issuer: anvil
`

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	prev := AppFs
	AppFs = fs
	t.Cleanup(func() { AppFs = prev })
	return fs
}

func TestSectionFromFile(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/app/appsettings.yaml", []byte(appsettings), 0o644))

	v, err := Load("/app")
	require.NoError(t, err)

	s, err := Section[testSettings](v, "TestSettings")
	require.NoError(t, err)
	assert.Equal(t, "Server=db;Database=app", s.ConnectionString)
	assert.Equal(t, "mssql", s.DBProvider)
	assert.Equal(t, 15*time.Second, s.Timeout)
	assert.Equal(t, "anvil", s.Jwt.Issuer)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/app/appsettings.yaml", []byte(appsettings), 0o644))
	t.Setenv("ANVIL_TESTSETTINGS_DBPROVIDER", "MySql")
	t.Setenv("ANVIL_TESTSETTINGS_MAXOPENCONNS", "42")
	t.Setenv("ANVIL_TESTSETTINGS_JWTSETTINGS_KEY", "env-key")

	v, err := Load("/app")
	require.NoError(t, err)

	s, err := Section[testSettings](v, "TestSettings")
	require.NoError(t, err)
	assert.Equal(t, "MySql", s.DBProvider)
	assert.Equal(t, 42, s.MaxOpenConns)
	assert.Equal(t, "env-key", s.Jwt.Key)
	assert.Equal(t, "Server=db;Database=app", s.ConnectionString)
}

func TestMissingFileAndSection(t *testing.T) {
	useMemFs(t)
	v, err := Load("/nowhere")
	require.NoError(t, err)

	s, err := Section[testSettings](v, "TestSettings")
	require.NoError(t, err)
	assert.Empty(t, s.ConnectionString)
	assert.Empty(t, s.DBProvider)
}

func TestBindKeepsDefaults(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/app/appsettings.yaml", []byte(appsettings), 0o644))
	v, err := Load("/app")
	require.NoError(t, err)

	s := testSettings{MaxOpenConns: 25}
	require.NoError(t, Bind(v, "TestSettings", &s))
	assert.Equal(t, 25, s.MaxOpenConns)
	assert.Equal(t, "mssql", s.DBProvider)

	assert.Error(t, Bind(v, "TestSettings", s))
}

func TestDotEnvFile(t *testing.T) {
	fs := useMemFs(t)
	const name = "ANVIL_DOTENVSETTINGS_DBPROVIDER"
	t.Cleanup(func() { _ = os.Unsetenv(name) })
	require.NoError(t, afero.WriteFile(fs, ".env", []byte(name+"=mysql\n"), 0o644))

	v, err := Load("/app")
	require.NoError(t, err)

	s, err := Section[testSettings](v, "DotEnvSettings")
	require.NoError(t, err)
	assert.Equal(t, "mysql", s.DBProvider)
}

func TestDumpMasksSecrets(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/app/appsettings.yaml", []byte(appsettings), 0o644))
	v, err := Load("/app")
	require.NoError(t, err)

	out, err := Dump(v)
	require.NoError(t, err)

	var dumped map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(out, &dumped))
	section := dumped["testsettings"]
	assert.Equal(t, "******", section["connectionstring"])
	assert.Equal(t, "mssql", section["dbprovider"])
	assert.Equal(t, "******", section["jwtsettings"].(map[string]any)["key"])
}

func TestDotEnvNeverOverridesProcessEnvironment(t *testing.T) {
	fs := useMemFs(t)
	const (
		preset = "ANVIL_DOTENVSETTINGS_CONNECTIONSTRING"
		local  = "ANVIL_DOTENVSETTINGS_DBPROVIDER"
	)
	t.Setenv(preset, "from-env")
	t.Cleanup(func() { _ = os.Unsetenv(local) })
	require.NoError(t, afero.WriteFile(fs, ".env", []byte(preset+"=from-dotenv\n"+local+"=mssql\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte(preset+"=from-local\n"+local+"=mysql\n"), 0o644))

	v, err := Load("/app")
	require.NoError(t, err)

	s, err := Section[testSettings](v, "DotEnvSettings")
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.ConnectionString)
	assert.Equal(t, "mysql", s.DBProvider, ".env.local overrides .env")
}
