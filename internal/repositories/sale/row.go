package sale

import (
	"strings"

	"github.com/diogoqz/api-consulta-hotmart/pkg/database"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
)

const table = "sales"

// recordColumns are the stored CustomerRecord fields, in scan order
var recordColumns = []string{
	"platform", "transaction_id", "name", "email", "area_code", "phone", "city", "state",
	"product", "plan", "value", "payment_method", "status", "free_period", "free_period_duration",
	"signup_date", "cancellation_date", "refund_date", "chargeback_date", "scheduled_date", "released_date",
}

// searchColumns are derived at write time and only read by queries
var searchColumns = []string{
	"search_name", "search_email", "email_lower", "search_city", "search_state",
	"status_norm", "full_phone", "has_email", "has_phone", "last_activity_unix",
}

type saleRow struct {
	Platform           models.Platform   `db:"platform"`
	TransactionID      string            `db:"transaction_id"`
	Name               string            `db:"name"`
	Email              string            `db:"email"`
	AreaCode           string            `db:"area_code"`
	Phone              string            `db:"phone"`
	City               string            `db:"city"`
	State              string            `db:"state"`
	Product            string            `db:"product"`
	Plan               string            `db:"plan"`
	Value              float64           `db:"value"`
	PaymentMethod      string            `db:"payment_method"`
	Status             string            `db:"status"`
	FreePeriod         string            `db:"free_period"`
	FreePeriodDuration string            `db:"free_period_duration"`
	SignupDate         database.NullTime `db:"signup_date"`
	CancellationDate   database.NullTime `db:"cancellation_date"`
	RefundDate         database.NullTime `db:"refund_date"`
	ChargebackDate     database.NullTime `db:"chargeback_date"`
	ScheduledDate      database.NullTime `db:"scheduled_date"`
	ReleasedDate       database.NullTime `db:"released_date"`
}

func (row saleRow) record() models.CustomerRecord {
	return models.CustomerRecord{
		Platform:           row.Platform,
		TransactionID:      row.TransactionID,
		Name:               row.Name,
		Email:              row.Email,
		AreaCode:           row.AreaCode,
		Phone:              row.Phone,
		City:               row.City,
		State:              row.State,
		Product:            row.Product,
		Plan:               row.Plan,
		Value:              row.Value,
		PaymentMethod:      row.PaymentMethod,
		Status:             row.Status,
		FreePeriod:         row.FreePeriod,
		FreePeriodDuration: row.FreePeriodDuration,
		SignupDate:         row.SignupDate.Ptr(),
		CancellationDate:   row.CancellationDate.Ptr(),
		RefundDate:         row.RefundDate.Ptr(),
		ChargebackDate:     row.ChargebackDate.Ptr(),
		ScheduledDate:      row.ScheduledDate.Ptr(),
		ReleasedDate:       row.ReleasedDate.Ptr(),
	}
}

// recordValues returns the values of recordColumns for r
func recordValues(r models.CustomerRecord) []any {
	return []any{
		r.Platform, r.TransactionID, r.Name, r.Email, r.AreaCode, r.Phone, r.City, r.State,
		r.Product, r.Plan, r.Value, r.PaymentMethod, r.Status, r.FreePeriod, r.FreePeriodDuration,
		database.NewNullTime(r.SignupDate), database.NewNullTime(r.CancellationDate), database.NewNullTime(r.RefundDate),
		database.NewNullTime(r.ChargebackDate), database.NewNullTime(r.ScheduledDate), database.NewNullTime(r.ReleasedDate),
	}
}

// searchValues returns the values of searchColumns for r. They depend on the record only,
// never on the active policy, so a policy change needs no reimport.
func searchValues(r models.CustomerRecord) []any {
	var lastActivity *int64
	if last := r.LastActivity(); last != nil {
		unix := last.Unix()
		lastActivity = &unix
	}
	return []any{
		normalizers.Text(r.Name),
		normalizers.Text(r.Email),
		normalizers.Email(r.Email),
		normalizers.Text(r.City),
		normalizers.Text(r.State),
		normalizers.Text(r.Status),
		normalizers.FullPhone(r.AreaCode, r.Phone),
		boolInt(strings.TrimSpace(r.Email) != ""),
		boolInt(strings.TrimSpace(r.Phone) != ""),
		lastActivity,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
