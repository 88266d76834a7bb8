package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// headerAliases maps accepted sheet headers to rawOrder fields. Headers are
// compared after trimming and lower-casing.
var headerAliases = map[string][]string{
	"id":              {"id", "訂單id"},
	"order_number":    {"order_number", "order number", "訂單編號", "訂單號碼"},
	"customer_name":   {"customer_name", "name", "姓名", "客戶姓名", "收件人"},
	"customer_phone":  {"customer_phone", "phone", "電話", "手機", "聯絡電話"},
	"customer_email":  {"customer_email", "email", "電子郵件", "電子郵件地址"},
	"address":         {"address", "地址", "收件地址"},
	"items":           {"items", "品項", "商品", "訂購內容"},
	"total":           {"total", "金額", "總金額"},
	"status":          {"status", "狀態", "訂單狀態"},
	"payment_status":  {"payment_status", "payment", "付款狀態"},
	"delivery_method": {"delivery_method", "delivery", "配送方式", "取貨方式"},
	"delivery_date":   {"delivery_date", "配送日期", "取貨日期"},
	"note":            {"note", "備註"},
	"created_at":      {"created_at", "timestamp", "時間戳記", "建立時間"},
}

// SheetsSource reads the order form responses from a Google Sheet published
// as CSV
type SheetsSource struct {
	client *resty.Client
	url    string
	loc    *time.Location
	log    *logger.Logger
}

func NewSheetsSource(url string, timeout time.Duration, loc *time.Location, log *logger.Logger) *SheetsSource {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/csv").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &SheetsSource{
		client: client,
		url:    url,
		loc:    loc,
		log:    log.WithComponent("sheets-source"),
	}
}

func (s *SheetsSource) Name() string { return "sheets" }

func (s *SheetsSource) FetchOrders(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch sheet: unexpected status %d", resp.StatusCode())
	}

	rows, err := s.parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(rows))
	for _, order := range rows {
		if order.CreatedAt.IsZero() || window.Contains(order.CreatedAt) {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// parse reads the CSV body into orders sorted by creation time. Ties keep
// sheet order; rows without a timestamp sort first.
func (s *SheetsSource) parse(r io.Reader) ([]*models.Order, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []*models.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sheet header: %w", err)
	}
	columns := mapHeader(header)
	if _, ok := columns["customer_phone"]; !ok {
		return nil, fmt.Errorf("sheet has no phone column")
	}

	orders := []*models.Order{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read sheet line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		raw := rawFromRecord(record, columns)
		if raw.ID == "" && raw.OrderNumber == "" {
			raw.ID = "sheets-" + strconv.Itoa(line)
		}

		order, err := raw.toOrder(models.OrderSourceSheets, s.loc)
		if err != nil {
			s.log.Warn("Sheet row has unreadable fields",
				zap.Int("line", line),
				zap.Error(err),
			)
		}
		orders = append(orders, order)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func mapHeader(header []string) map[string]int {
	lookup := make(map[string]string)
	for field, aliases := range headerAliases {
		for _, alias := range aliases {
			lookup[alias] = field
		}
	}

	columns := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := lookup[key]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}
	return columns
}

func rawFromRecord(record []string, columns map[string]int) rawOrder {
	get := func(field string) string {
		i, ok := columns[field]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	return rawOrder{
		ID:             get("id"),
		OrderNumber:    get("order_number"),
		CustomerName:   get("customer_name"),
		CustomerPhone:  get("customer_phone"),
		CustomerEmail:  get("customer_email"),
		Address:        get("address"),
		Items:          get("items"),
		Total:          get("total"),
		Status:         get("status"),
		PaymentStatus:  get("payment_status"),
		DeliveryMethod: get("delivery_method"),
		DeliveryDate:   get("delivery_date"),
		Note:           get("note"),
		CreatedAt:      get("created_at"),
	}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
