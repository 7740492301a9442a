package application

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shophub/internal/order/domain"
)

const (
	storeName       = "ShopHub"
	defaultGreeting = "Customer"
	unknownProduct  = "Product"
	supportEmail    = "support@shophub.example"
)

// item is one confirmation line as re-read from the catalog.
type item struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

func (i item) PriceText() string { return money(i.Price) }

func money(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

func itemLines(items []item) []string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s x%d - %s", it.Name, it.Quantity, money(it.Price)))
	}
	return lines
}

func buildPrompt(name string, order domain.Order, items []item) string {
	return fmt.Sprintf("Write a professional order confirmation email in English for a customer named: %s. "+
		"Store: %s. Address them by their name in the greeting (e.g., Dear %s). Items:\n%s\nTotal: %s.\n\n"+
		"Keep it professional and warm.",
		name, storeName, name, strings.Join(itemLines(items), "\n"), money(order.Total))
}

// fallbackBody is pure formatting and cannot fail.
func fallbackBody(name string, order domain.Order, items []item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("Thank you for shopping with us! We have received your order and it is being processed.\n\n")
	fmt.Fprintf(&b, "Order Number: %d\n\n", order.ID)
	b.WriteString("Here is a summary of your order:\n\n")
	for _, l := range itemLines(items) {
		b.WriteString("- " + l + "\n")
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\n", money(order.Total))
	b.WriteString("Your order will ship within 1-2 business days. We will email you a tracking number.\n\n")
	b.WriteString("If you have any questions, please contact our customer service.\n\n")
	fmt.Fprintf(&b, "Thank you,\nThe %s Team", storeName)
	return b.String()
}

var htmlTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; color: #333; background-color: #f5f5f5; }
    .container { max-width: 600px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; }
    .header { text-align: center; padding-bottom: 20px; border-bottom: 2px solid #007bff; }
    .header h1 { color: #007bff; margin: 0; }
    .order-number { background: #f0f8ff; padding: 12px; border-left: 4px solid #007bff; margin: 15px 0; }
    table { width: 100%; border-collapse: collapse; margin: 20px 0; }
    th { background: #f9f9f9; padding: 12px; text-align: left; border-bottom: 2px solid #007bff; }
    td { padding: 12px; border-bottom: 1px solid #eee; }
    .content { white-space: pre-wrap; line-height: 1.6; margin: 20px 0; }
    .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; color: #666; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Order Confirmation</h1>
      <p>Thank you for shopping with {{.Store}}!</p>
    </div>
    <div class="order-number"><strong>Order Number:</strong> {{.OrderID}}</div>
    <div class="content">{{.Body}}</div>
    <table>
      <thead>
        <tr><th>Product</th><th style="text-align:center;">Qty</th><th style="text-align:right;">Price</th></tr>
      </thead>
      <tbody>
        {{- range .Items}}
        <tr><td>{{.Name}}</td><td style="text-align:center;">{{.Quantity}}</td><td style="text-align:right;">{{.PriceText}}</td></tr>
        {{- end}}
      </tbody>
    </table>
    <div class="footer"><p><strong>Email:</strong> {{.Support}}</p></div>
  </div>
</body>
</html>
`))

func renderHTML(order domain.Order, body string, items []item) (string, error) {
	var buf bytes.Buffer
	err := htmlTmpl.Execute(&buf, struct {
		Store   string
		OrderID int64
		Body    string
		Items   []item
		Support string
	}{storeName, order.ID, body, items, supportEmail})
	return buf.String(), err
}
