package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/pkg/importer"
	"github.com/diogoqz/api-consulta-hotmart/pkg/search"
)

const hotmartCSV = "Código;Cliente;Email;DDD;Telefone;Cidade;Estado;Produto;Plano;Valor;Adesão;Cancelamento;Período Grátis;Duração do Período Grátis;Forma de Pagamento;Status\n" +
	"HP1;João Pereira;joao@email.com;81;999999911;Recife;PE;Curso A;Mensal;R$ 97,00;05/01/2023 10:30:00;;;;Cartão;Ativo\n" +
	"HP2;Maria Silva;maria@x.com;11;33334444;São Paulo;SP;Curso B;Anual;1.234,56;01/02/2023;;;;Boleto;Cancelada\n"

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DSN", "file:"+filepath.Join(dir, "sales.db")+"?_busy_timeout=5000")
	t.Setenv("STARTUP_MAX_ATTEMPTS", "1")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("GRAPH_ENABLED", "false")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")

	require.NoError(t, err)
	assert.Equal(t, "migrations applied\n", out)
}

func TestImportSearchStats(t *testing.T) {
	dir := setupEnv(t)
	file := filepath.Join(dir, "vendas.csv")
	require.NoError(t, os.WriteFile(file, []byte(hotmartCSV), 0o600))

	out, err := execute(t, "import", "--platform", "hotmart", file)
	require.NoError(t, err)
	var results []importer.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].RowsWritten)
	assert.False(t, results[0].Unchanged)

	out, err = execute(t, "import", "-p", "hotmart", file)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.True(t, results[0].Unchanged)

	out, err = execute(t, "search", "joao@email.com")
	require.NoError(t, err)
	var found search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.NotEmpty(t, found.Candidates)
	assert.Equal(t, "HP1", found.Candidates[0].Record.TransactionID)

	out, err = execute(t, "search", "--grouped", "joao@email.com")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	assert.NotEmpty(t, found.Groups)

	out, err = execute(t, "stats")
	require.NoError(t, err)
	var stats statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.TotalClients)
	require.NotEmpty(t, stats.Platforms)
}

func TestImport_Errors(t *testing.T) {
	dir := setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing platform", args: []string{"import", filepath.Join(dir, "x.csv")}},
		{name: "unknown platform", args: []string{"import", "-p", "eduzz", filepath.Join(dir, "x.csv")}},
		{name: "missing file", args: []string{"import", "-p", "cakto", filepath.Join(dir, "missing.csv")}},
		{name: "no files", args: []string{"import", "-p", "cakto"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
