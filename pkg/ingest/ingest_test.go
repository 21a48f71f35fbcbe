package ingest_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/pkg/ingest"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"R$ 1.234,56", 1234.56},
		{"97,00", 97},
		{"R$47,5", 47.5},
		{"", 0},
		{"grátis", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ingest.ParseMoney(tt.in), 1e-9)
		})
	}
}

func TestParseAmount(t *testing.T) {
	assert.InDelta(t, 97.5, ingest.ParseAmount("97.50"), 1e-9)
	assert.InDelta(t, 1234.56, ingest.ParseAmount("1.234,56"), 1e-9)
	assert.InDelta(t, 0, ingest.ParseAmount("n/a"), 1e-9)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 1, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want *time.Time
	}{
		{"05/01/2023 10:30:00", &want},
		{"05/01/2023 10:30", &want},
		{"2023-01-05 10:30:00", &want},
		{"2023-01-05T10:30:00Z", &want},
		{"2023-01-05T07:30:00-03:00", &want},
		{"", nil},
		{"ontem", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ingest.ParseDate(tt.in, nil)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}

	t.Run("date only", func(t *testing.T) {
		got := ingest.ParseDate("05/01/2023", nil)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("location applies to zoneless values", func(t *testing.T) {
		loc := time.FixedZone("BRT", -3*3600)
		got := ingest.ParseDate("05/01/2023 07:30:00", loc)
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	})
}

func TestSplitPhone(t *testing.T) {
	tests := []struct {
		in     string
		area   string
		number string
	}{
		{"(11) 98765-4321", "11", "987654321"},
		{"1133334444", "11", "33334444"},
		{"+55 11 98765-4321", "11", "987654321"},
		{"551133334444", "11", "33334444"},
		{"98765", "", "98765"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			area, number := ingest.SplitPhone(tt.in)
			assert.Equal(t, tt.area, area)
			assert.Equal(t, tt.number, number)
		})
	}
}

const hotmartExport = "\ufeffCódigo;Cliente;Email;DDD;Telefone;Cidade;Estado;Produto;Plano;Valor;Adesão;Cancelamento;Período Grátis;Duração do Período Grátis;Forma de Pagamento;Status\n" +
	"HP1;João Pereira;joao@email.com;81;999999911;Recife;PE;Curso A;Mensal;R$ 97,00;05/01/2023 10:30:00;;Não;;Cartão;Ativo\n" +
	";Sem Codigo;sem@codigo.com;11;33334444;São Paulo;SP;Curso B;Anual;1.234,56;2023-02-01 08:00:00;01/03/2023;Sim;7 dias;Boleto;Cancelada\n" +
	"HP3;;anon@x.com;;;;;Curso A;;10,00;;;;;;Ativo\n" +
	"\n"

func TestHotmartReader(t *testing.T) {
	reader := ingest.NewHotmartReader()
	assert.Equal(t, models.PlatformHotmart, reader.Platform())

	result, err := reader.Read(context.Background(), strings.NewReader(hotmartExport))
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 1, result.RowsSkipped)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, models.PlatformHotmart, first.Platform)
	assert.Equal(t, "HP1", first.TransactionID)
	assert.Equal(t, "João Pereira", first.Name)
	assert.Equal(t, "81", first.AreaCode)
	assert.Equal(t, "999999911", first.Phone)
	assert.Equal(t, "Mensal", first.Plan)
	assert.InDelta(t, 97, first.Value, 1e-9)
	assert.Equal(t, "Cartão", first.PaymentMethod)
	assert.Equal(t, "Ativo", first.Status)
	require.NotNil(t, first.SignupDate)
	assert.Equal(t, time.Date(2023, 1, 5, 10, 30, 0, 0, time.UTC), *first.SignupDate)
	assert.Nil(t, first.CancellationDate)

	second := result.Records[1]
	assert.Empty(t, second.TransactionID)
	assert.Equal(t, "Sem Codigo-Curso B-2023-02-01 08:00:00", second.Key())
	assert.InDelta(t, 1234.56, second.Value, 1e-9)
	assert.Equal(t, "Sim", second.FreePeriod)
	assert.Equal(t, "7 dias", second.FreePeriodDuration)
	require.NotNil(t, second.CancellationDate)
}

const caktoExport = "ID da Venda,Produto,Status da Venda,Nome do Cliente,Email do Cliente,Telefone do Cliente,Método de Pagamento,Valor Pago pelo Cliente,Data da Venda,Data de Pagamento,Data do Reembolso,Data do Chargeback,Data de Agendamento do Pagamento,Data de Cancelamento do Pagamento,Data estimada de Liberação\n" +
	"CK1,Mentoria,paid,Maria Silva,maria@x.com,+55 (11) 98765-4321,pix,497.00,2024-03-10 14:00:00,2024-03-10 14:05:00,,,,,2024-04-10\n" +
	"CK2,\"Mentoria, turma 2\",refunded,\"Silva, Ana\",ana@x.com,3133334444,credit_card,\"1.200,50\",,2024-03-11 09:00:00,2024-03-20 10:00:00,,,,\n" +
	"CK3,Ebook,paid,Curto,curto@x.com\n"

func TestCaktoReader(t *testing.T) {
	reader := ingest.NewCaktoReader()
	assert.Equal(t, models.PlatformCakto, reader.Platform())

	result, err := reader.Read(context.Background(), strings.NewReader(caktoExport))
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 1, result.RowsSkipped)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, models.PlatformCakto, first.Platform)
	assert.Equal(t, "CK1", first.TransactionID)
	assert.Equal(t, "11", first.AreaCode)
	assert.Equal(t, "987654321", first.Phone)
	assert.InDelta(t, 497, first.Value, 1e-9)
	require.NotNil(t, first.SignupDate)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC), *first.SignupDate)
	require.NotNil(t, first.ReleasedDate)

	second := result.Records[1]
	assert.Equal(t, "Mentoria, turma 2", second.Product)
	assert.Equal(t, "Silva, Ana", second.Name)
	assert.Equal(t, "31", second.AreaCode)
	assert.InDelta(t, 1200.5, second.Value, 1e-9)
	require.NotNil(t, second.SignupDate, "falls back to the payment date")
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), *second.SignupDate)
	require.NotNil(t, second.RefundDate)
}

func TestReaderErrors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		_, err := ingest.NewHotmartReader().Read(context.Background(), strings.NewReader("Código;Email\nX;a@b.com\n"))
		assert.True(t, errors.Is(err, ingest.ErrMissingColumn))
	})

	t.Run("empty input", func(t *testing.T) {
		result, err := ingest.NewCaktoReader().Read(context.Background(), strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, result.Records)
		assert.Zero(t, result.RowsRead)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ingest.NewHotmartReader().Read(ctx, strings.NewReader(hotmartExport))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := ingest.ReaderFor(models.Platform("eduzz"))
		assert.Error(t, err)
	})

	t.Run("reader for platform", func(t *testing.T) {
		r, err := ingest.ReaderFor(models.PlatformCakto)
		require.NoError(t, err)
		assert.Equal(t, models.PlatformCakto, r.Platform())
	})
}
