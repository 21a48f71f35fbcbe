package app

import (
	"context"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/config"
	"github.com/diogoqz/api-consulta-hotmart/pkg/kafka"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/search"
	"github.com/diogoqz/api-consulta-hotmart/pkg/startup"
)

const hotmartCSV = "Código;Cliente;Email;DDD;Telefone;Cidade;Estado;Produto;Plano;Valor;Adesão;Cancelamento;Período Grátis;Duração do Período Grátis;Forma de Pagamento;Status\n" +
	"HP1;João Pereira;joao@email.com;81;999999911;Recife;PE;Curso A;Mensal;R$ 97,00;05/01/2023 10:30:00;;;;Cartão;Ativo\n" +
	"HP2;Maria Silva;maria@x.com;11;33334444;São Paulo;SP;Curso B;Anual;1.234,56;01/02/2023;;;;Boleto;Cancelada\n"

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	base := map[string]string{
		"DB_DRIVER":            "sqlite3",
		"DB_DSN":               ":memory:",
		"STARTUP_MAX_ATTEMPTS": "1",
	}
	for k, v := range env {
		base[k] = v
	}
	for k, v := range base {
		t.Setenv(k, v)
	}
	cfg, err := config.LoadEnv()
	require.NoError(t, err)
	return cfg
}

func TestApp_ImportAndSearch(t *testing.T) {
	for _, pushdown := range []string{"true", "false"} {
		t.Run("pushdown="+pushdown, func(t *testing.T) {
			ctx := context.Background()
			a := New(testConfig(t, map[string]string{"SEARCH_PUSHDOWN": pushdown}), testLogger())
			require.NoError(t, a.Start(ctx))
			t.Cleanup(func() { _ = a.Stop(ctx) })

			assert.IsType(t, kafka.NoopPublisher{}, a.Publisher)
			assert.Nil(t, a.Graph)
			assert.Nil(t, a.Projection)

			result, err := a.Importer.Import(ctx, models.PlatformHotmart, "vendas.csv", strings.NewReader(hotmartCSV), false)
			require.NoError(t, err)
			assert.Equal(t, 2, result.RowsWritten)

			found, err := a.Engine.Search(ctx, "joao@email.com", search.Options{Options: a.Config.Policy.Search})
			require.NoError(t, err)
			require.NotEmpty(t, found.Candidates)
			assert.Equal(t, "HP1", found.Candidates[0].Record.TransactionID)
		})
	}
}

func TestApp_ExtraDependencyStartsAfterComponents(t *testing.T) {
	ctx := context.Background()
	a := New(testConfig(t, nil), testLogger())

	var engineReady bool
	a.AddDependency(&startup.Dependency{
		Name:     "http",
		Requires: []string{DependencyComponents},
		StartFunc: func(context.Context) error {
			engineReady = a.Engine != nil && a.Importer != nil
			return nil
		},
	})

	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() { _ = a.Stop(ctx) })
	assert.True(t, engineReady)
}

func TestApp_StartFailsOnUnreachableDatabase(t *testing.T) {
	a := New(testConfig(t, map[string]string{"DB_DSN": "file:/nonexistent/dir/sales.db?mode=ro"}), testLogger())

	err := a.Start(context.Background())

	assert.Error(t, err)
	assert.Nil(t, a.Engine)
}
