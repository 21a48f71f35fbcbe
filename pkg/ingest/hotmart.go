package ingest

import (
	"context"
	"io"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

// Hotmart export columns
const (
	hotmartCode          = "Código"
	hotmartClient        = "Cliente"
	hotmartEmail         = "Email"
	hotmartAreaCode      = "DDD"
	hotmartPhone         = "Telefone"
	hotmartCity          = "Cidade"
	hotmartState         = "Estado"
	hotmartProduct       = "Produto"
	hotmartPlan          = "Plano"
	hotmartValue         = "Valor"
	hotmartSignup        = "Adesão"
	hotmartCancellation  = "Cancelamento"
	hotmartFreePeriod    = "Período Grátis"
	hotmartFreeDuration  = "Duração do Período Grátis"
	hotmartPaymentMethod = "Forma de Pagamento"
	hotmartStatus        = "Status"
)

// HotmartReader reads the semicolon separated Hotmart subscriptions export
type HotmartReader struct {
	opts options
}

// NewHotmartReader creates a HotmartReader
func NewHotmartReader(opts ...Option) *HotmartReader {
	return &HotmartReader{opts: newOptions(opts)}
}

// Platform returns models.PlatformHotmart
func (h *HotmartReader) Platform() models.Platform {
	return models.PlatformHotmart
}

// Read parses the export. Rows without a client name are skipped.
func (h *HotmartReader) Read(ctx context.Context, r io.Reader) (*Result, error) {
	var records []models.CustomerRecord

	result, err := readRows(ctx, r, ';', []string{hotmartClient}, func(hd header, row []string) bool {
		name := hd.get(row, hotmartClient)
		if name == "" {
			return false
		}

		records = append(records, models.CustomerRecord{
			Platform:           models.PlatformHotmart,
			TransactionID:      hd.get(row, hotmartCode),
			Name:               name,
			Email:              hd.get(row, hotmartEmail),
			AreaCode:           hd.get(row, hotmartAreaCode),
			Phone:              hd.get(row, hotmartPhone),
			City:               hd.get(row, hotmartCity),
			State:              hd.get(row, hotmartState),
			Product:            hd.get(row, hotmartProduct),
			Plan:               hd.get(row, hotmartPlan),
			Value:              ParseMoney(hd.get(row, hotmartValue)),
			PaymentMethod:      hd.get(row, hotmartPaymentMethod),
			Status:             hd.get(row, hotmartStatus),
			FreePeriod:         hd.get(row, hotmartFreePeriod),
			FreePeriodDuration: hd.get(row, hotmartFreeDuration),
			SignupDate:         ParseDate(hd.get(row, hotmartSignup), h.opts.loc),
			CancellationDate:   ParseDate(hd.get(row, hotmartCancellation), h.opts.loc),
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	if records != nil {
		result.Records = records
	}
	return result, nil
}
