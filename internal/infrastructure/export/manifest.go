// Package export writes courier shipping manifests for home-delivery orders.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ak/oms/internal/domain/models"
)

type Courier string

const (
	CourierTCat Courier = "tcat" // 黑貓宅急便, XLSX upload
	CourierHCT  Courier = "hct"  // 新竹物流, CSV upload
)

func ParseCourier(s string) (Courier, error) {
	switch c := Courier(strings.ToLower(strings.TrimSpace(s))); c {
	case CourierTCat, CourierHCT:
		return c, nil
	default:
		return "", fmt.Errorf("unknown courier %q", s)
	}
}

// Sender is printed on every manifest row
type Sender struct {
	Name    string
	Phone   string
	Address string
}

// Row is one parcel on a manifest
type Row struct {
	ReceiverName  string
	ReceiverPhone string
	Address       string
	Items         string
	COD           int
	OrderNumber   string
	DeliveryDate  string
	Note          string
}

// BuildRows maps orders to manifest rows. Only home-delivery orders ship;
// everything else is skipped. Input order is kept.
func BuildRows(orders []*models.Order, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}

	rows := make([]Row, 0, len(orders))
	for _, o := range orders {
		if o == nil || o.DeliveryMethod != models.DeliveryMethodHome {
			continue
		}

		row := Row{
			ReceiverName:  o.CustomerName,
			ReceiverPhone: CleanPhone(o.CustomerPhone),
			Address:       o.Address,
			Items:         o.Items.Summary(),
			COD:           o.CODAmount(),
			OrderNumber:   o.OrderNumber,
			Note:          o.Note,
		}
		if row.OrderNumber == "" {
			row.OrderNumber = o.ID
		}
		if o.DeliveryDate != nil {
			row.DeliveryDate = o.DeliveryDate.In(loc).Format("2006/01/02")
		}
		rows = append(rows, row)
	}
	return rows
}

// CleanPhone strips separators couriers reject (spaces, dashes, dots,
// parentheses) and keeps digits, a leading plus and extension markers.
// It is cosmetic only and unrelated to the duplicate-detection key.
func CleanPhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '０' && r <= '９':
			b.WriteRune('0' + (r - '０'))
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case r == '#':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')', r == '　':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Result describes a written manifest
type Result struct {
	Courier     Courier
	BatchID     string
	Rows        int
	ContentType string
	Extension   string
	Encoding    string // utf-8 or big5
	Fallback    bool   // true when big5 was requested but could not encode the data
}

// Filename suggests a download name for the manifest
func (r Result) Filename(date time.Time) string {
	short := r.BatchID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s-%s.%s", r.Courier, date.Format("20060102"), short, r.Extension)
}

// Writer renders rows in a courier's upload format
type Writer interface {
	Write(w io.Writer, rows []Row, sender Sender) (Result, error)
}
