package order

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	ordersSheet      = "Pedidos"
	commissionsSheet = "Comissões"
)

var roleLabels = map[Role]string{
	RoleVendor:    "Vendedor",
	RoleInstaller: "Instalador",
}

// ExportOrdersXLSX builds a workbook with the orders of the period and their commissions
func (s *Service) ExportOrdersXLSX(period Period) ([]byte, error) {
	orders, err := s.ordersIn(period)
	if err != nil {
		return nil, err
	}
	report, err := s.CommissionReport(period)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(commissionsSheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	orderRows := [][]any{{"Data", "Pedido", "Cliente", "Veículo", "Placa", "Vendedor", "Instalador", "Itens", "Total"}}
	for _, o := range orders {
		vehicle := strings.TrimSpace(o.Vehicle.Make + " " + o.Vehicle.Model)
		orderRows = append(orderRows, []any{
			o.OrderDate.Format("02/01/2006"),
			o.Number,
			o.Client.Name,
			vehicle,
			o.Vehicle.Plate,
			o.VendorName,
			o.Team.InstallerName,
			len(o.Items),
			fromCents(o.Total),
		})
	}
	if err := writeRows(f, ordersSheet, orderRows); err != nil {
		return nil, err
	}

	commissionRows := [][]any{{"Nome", "Função", "Pedidos", "Base", "%", "Comissão"}}
	for _, line := range report.Lines {
		commissionRows = append(commissionRows, []any{
			line.Name,
			roleLabels[line.Role],
			line.Orders,
			line.Base.InexactFloat64(),
			line.Percent.InexactFloat64(),
			line.Commission.InexactFloat64(),
		})
	}
	commissionRows = append(commissionRows, []any{"Total", "", "", "", "", report.Total.InexactFloat64()})
	if err := writeRows(f, commissionsSheet, commissionRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
