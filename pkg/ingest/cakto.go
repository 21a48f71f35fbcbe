package ingest

import (
	"context"
	"io"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

// Cakto export columns
const (
	caktoID            = "ID da Venda"
	caktoProduct       = "Produto"
	caktoStatus        = "Status da Venda"
	caktoName          = "Nome do Cliente"
	caktoEmail         = "Email do Cliente"
	caktoPhone         = "Telefone do Cliente"
	caktoPaymentMethod = "Método de Pagamento"
	caktoValue         = "Valor Pago pelo Cliente"
	caktoSaleDate      = "Data da Venda"
	caktoPaymentDate   = "Data de Pagamento"
	caktoRefundDate    = "Data do Reembolso"
	caktoChargeback    = "Data do Chargeback"
	caktoScheduled     = "Data de Agendamento do Pagamento"
	caktoCancelled     = "Data de Cancelamento do Pagamento"
	caktoReleased      = "Data estimada de Liberação"
)

// CaktoReader reads the comma separated Cakto sales export
type CaktoReader struct {
	opts options
}

// NewCaktoReader creates a CaktoReader
func NewCaktoReader(opts ...Option) *CaktoReader {
	return &CaktoReader{opts: newOptions(opts)}
}

// Platform returns models.PlatformCakto
func (c *CaktoReader) Platform() models.Platform {
	return models.PlatformCakto
}

// Read parses the export. Rows whose column count differs from the header are skipped.
func (c *CaktoReader) Read(ctx context.Context, r io.Reader) (*Result, error) {
	var records []models.CustomerRecord

	result, err := readRows(ctx, r, ',', []string{caktoID, caktoName}, func(hd header, row []string) bool {
		if len(row) != hd.width {
			return false
		}

		areaCode, phone := SplitPhone(hd.get(row, caktoPhone))
		signup := ParseDate(hd.get(row, caktoSaleDate), c.opts.loc)
		if signup == nil {
			signup = ParseDate(hd.get(row, caktoPaymentDate), c.opts.loc)
		}

		records = append(records, models.CustomerRecord{
			Platform:         models.PlatformCakto,
			TransactionID:    hd.get(row, caktoID),
			Name:             hd.get(row, caktoName),
			Email:            hd.get(row, caktoEmail),
			AreaCode:         areaCode,
			Phone:            phone,
			Product:          hd.get(row, caktoProduct),
			Value:            ParseAmount(hd.get(row, caktoValue)),
			PaymentMethod:    hd.get(row, caktoPaymentMethod),
			Status:           hd.get(row, caktoStatus),
			SignupDate:       signup,
			CancellationDate: ParseDate(hd.get(row, caktoCancelled), c.opts.loc),
			RefundDate:       ParseDate(hd.get(row, caktoRefundDate), c.opts.loc),
			ChargebackDate:   ParseDate(hd.get(row, caktoChargeback), c.opts.loc),
			ScheduledDate:    ParseDate(hd.get(row, caktoScheduled), c.opts.loc),
			ReleasedDate:     ParseDate(hd.get(row, caktoReleased), c.opts.loc),
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
