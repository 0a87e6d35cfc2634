package order

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period bounds a report by order date. Zero values are open ends; To is inclusive.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) contains(t time.Time) bool {
	day := dateOnly(t)
	if !p.From.IsZero() && day.Before(dateOnly(p.From)) {
		return false
	}
	if !p.To.IsZero() && day.After(dateOnly(p.To)) {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CommissionLine is the commission owed to one staff member
type CommissionLine struct {
	StaffID    string          `json:"staff_id"`
	Name       string          `json:"name"`
	Role       Role            `json:"role"`
	Orders     int             `json:"orders"`
	Base       decimal.Decimal `json:"base"`
	Percent    decimal.Decimal `json:"percent"`
	Commission decimal.Decimal `json:"commission"`
}

// CommissionReport lists commissions for a period
type CommissionReport struct {
	From     string           `json:"from,omitempty"`
	To       string           `json:"to,omitempty"`
	Currency string           `json:"currency"`
	Lines    []CommissionLine `json:"lines"`
	Total    decimal.Decimal  `json:"total"`
}

// ordersIn returns the orders dated within the period, oldest first
func (s *Service) ordersIn(period Period) ([]*Order, error) {
	all, err := s.db.ListOrders()
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders := make([]*Order, 0, len(all))
	for _, o := range all {
		if period.contains(o.OrderDate) {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.Before(orders[j].OrderDate)
		}
		return orders[i].Number < orders[j].Number
	})
	return orders, nil
}

func sameName(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// commissionBase is the amount a staff member earns commission on, and the
// number of orders contributing to it. Vendors earn on order totals and
// installers on the line totals of the items they installed.
func commissionBase(member *Staff, orders []*Order) (decimal.Decimal, int) {
	base := decimal.Zero
	count := 0
	for _, o := range orders {
		switch member.Role {
		case RoleVendor:
			if sameName(o.VendorName, member.Name) || (o.VendorName == "" && sameName(o.Team.VendorName, member.Name)) {
				base = base.Add(decimal.New(o.Total, -2))
				count++
			}
		case RoleInstaller:
			found := false
			for _, item := range o.Items {
				installer := item.Installer
				if installer == "" {
					installer = o.Team.InstallerName
				}
				if sameName(installer, member.Name) {
					base = base.Add(decimal.NewFromFloat(item.LineTotal))
					found = true
				}
			}
			if found {
				count++
			}
		}
	}
	return base.Round(2), count
}

// CommissionReport computes the commission of every staff member for the period
func (s *Service) CommissionReport(period Period) (*CommissionReport, error) {
	orders, err := s.ordersIn(period)
	if err != nil {
		return nil, err
	}
	members, err := s.ListStaff()
	if err != nil {
		return nil, err
	}

	report := &CommissionReport{
		Currency: s.currency,
		Lines:    make([]CommissionLine, 0, len(members)),
		Total:    decimal.Zero,
	}
	if !period.From.IsZero() {
		report.From = period.From.Format("2006-01-02")
	}
	if !period.To.IsZero() {
		report.To = period.To.Format("2006-01-02")
	}

	hundred := decimal.NewFromInt(100)
	for _, member := range members {
		base, count := commissionBase(member, orders)
		commission := base.Mul(member.CommissionPercent).Div(hundred).Round(2)
		report.Lines = append(report.Lines, CommissionLine{
			StaffID:    member.ID,
			Name:       member.Name,
			Role:       member.Role,
			Orders:     count,
			Base:       base,
			Percent:    member.CommissionPercent,
			Commission: commission,
		})
		report.Total = report.Total.Add(commission)
	}
	return report, nil
}
