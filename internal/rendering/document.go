// Package rendering lays out the shop's order document as a PDF.
package rendering

// Company is the shop identity printed in the header
type Company struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Client is the customer block
type Client struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// OrderInfo is the order metadata block
type OrderInfo struct {
	Number        string  `json:"number"`
	Date          string  `json:"date"`
	PaymentMethod string  `json:"paymentMethod"`
	VendorName    string  `json:"vendorName"`
	Total         float64 `json:"total"`
}

// Item is one table row. Installer is assigned after extraction.
type Item struct {
	Description     string  `json:"description"`
	Code            string  `json:"code"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	LineTotal       float64 `json:"lineTotal"`
	Installer       string  `json:"installer"`
}

// Vehicle is the vehicle part of the footer
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Plate string `json:"plate"`
	Color string `json:"color"`
}

// Team is the people part of the footer
type Team struct {
	InstallerName string `json:"installerName"`
	VendorName    string `json:"vendorName"`
}

// Document is everything printed on an order PDF. Every field is optional;
// absent values print as empty slots.
type Document struct {
	Company Company   `json:"company"`
	Client  Client    `json:"client"`
	Order   OrderInfo `json:"order"`
	Items   []Item    `json:"items"`
	Vehicle Vehicle   `json:"vehicle"`
	Team    Team      `json:"team"`
	Notes   string    `json:"notes"`
}
