package export

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const tcatSheet = "出貨單"

var tcatHeaders = []string{
	"訂單編號", "收件人姓名", "收件人電話", "收件人地址", "品名",
	"代收貨款", "指定配達日", "備註", "寄件人姓名", "寄件人電話", "寄件人地址",
}

var tcatWidths = []float64{16, 12, 16, 40, 36, 10, 12, 24, 12, 16, 40}

// TCatWriter produces the XLSX bulk-upload sheet for T-Cat
type TCatWriter struct{}

func (TCatWriter) Write(w io.Writer, rows []Row, sender Sender) (Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tcatSheet); err != nil {
		return Result{}, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return Result{}, err
	}

	for i, h := range tcatHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(tcatSheet, cell, h)
		f.SetCellStyle(tcatSheet, cell, cell, header)
	}

	for i, row := range rows {
		values := []any{
			row.OrderNumber, row.ReceiverName, row.ReceiverPhone, row.Address, row.Items,
			row.COD, row.DeliveryDate, row.Note, sender.Name, sender.Phone, sender.Address,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			// phones and order numbers must stay text so leading zeros survive
			if s, ok := v.(string); ok {
				f.SetCellStr(tcatSheet, cell, s)
				continue
			}
			f.SetCellValue(tcatSheet, cell, v)
		}
	}

	for i, width := range tcatWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(tcatSheet, col, col, width)
	}

	if err := f.Write(w); err != nil {
		return Result{}, fmt.Errorf("write xlsx: %w", err)
	}

	return Result{
		Courier:     CourierTCat,
		BatchID:     uuid.NewString(),
		Rows:        len(rows),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension:   "xlsx",
		Encoding:    "utf-8",
	}, nil
}
