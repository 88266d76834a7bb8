package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ak/oms/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/traditionalchinese"
)

var hctHeaders = []string{
	"訂單號碼", "收貨人名稱", "收貨人電話", "收貨人地址", "代收金額",
	"品名", "指定配送日", "備註", "寄件人", "寄件人電話", "寄件人地址",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// HCTWriter produces the CSV upload file for HCT. HCT's importer expects
// Big5; names with characters outside Big5 (rare surnames, emoji) force a
// UTF-8 file with BOM instead.
type HCTWriter struct {
	Encoding string // big5 or utf8
	Logger   *logger.Logger
}

func (h HCTWriter) Write(w io.Writer, rows []Row, sender Sender) (Result, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.UseCRLF = true

	if err := cw.Write(hctHeaders); err != nil {
		return Result{}, err
	}
	for _, row := range rows {
		record := []string{
			row.OrderNumber, row.ReceiverName, row.ReceiverPhone, row.Address,
			strconv.Itoa(row.COD), row.Items, row.DeliveryDate, row.Note,
			sender.Name, sender.Phone, sender.Address,
		}
		if err := cw.Write(record); err != nil {
			return Result{}, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return Result{}, fmt.Errorf("write csv: %w", err)
	}

	result := Result{
		Courier:     CourierHCT,
		BatchID:     uuid.NewString(),
		Rows:        len(rows),
		ContentType: "text/csv; charset=utf-8",
		Extension:   "csv",
		Encoding:    "utf-8",
	}

	out := buf.Bytes()
	if wantsBig5(h.Encoding) {
		encoded, err := traditionalchinese.Big5.NewEncoder().Bytes(out)
		if err == nil {
			out = encoded
			result.Encoding = "big5"
			result.ContentType = "text/csv; charset=big5"
		} else {
			result.Fallback = true
			if h.Logger != nil {
				h.Logger.Warn("Manifest not representable in Big5, writing UTF-8 with BOM",
					zap.String("batch_id", result.BatchID),
					zap.Error(err),
				)
			}
		}
	}

	if result.Encoding == "utf-8" {
		if _, err := w.Write(utf8BOM); err != nil {
			return Result{}, err
		}
	}
	if _, err := w.Write(out); err != nil {
		return Result{}, err
	}
	return result, nil
}

func wantsBig5(encoding string) bool {
	return strings.EqualFold(strings.TrimSpace(encoding), "big5")
}

// NewWriter returns the writer for a courier
func NewWriter(c Courier, csvEncoding string, log *logger.Logger) (Writer, error) {
	switch c {
	case CourierTCat:
		return TCatWriter{}, nil
	case CourierHCT:
		return HCTWriter{Encoding: csvEncoding, Logger: log}, nil
	default:
		return nil, fmt.Errorf("unknown courier %q", c)
	}
}
