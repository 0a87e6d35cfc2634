package scanning

import "strings"

// systemInstruction sets the role for every provider
const systemInstruction = "You are an expert at reading Brazilian sales receipts and returning their contents as structured JSON."

// orderScanPrompt is the shared prompt used by all LLM providers for reading order receipts
const orderScanPrompt = `You are reading a sales receipt from a Brazilian automotive accessories shop (películas, alarmes, multimídia, som, sensores, travas and their installation). The receipt text is in Portuguese. Extract the following information:

1. **Client**: name (Nome/Cliente), tax id (CPF or CNPJ, keep the punctuation), address (Endereço), phone (Telefone/Celular, keep the formatting), email.

2. **Order**: order number (Pedido/Orçamento Nº), date exactly as printed (usually DD/MM/YYYY), payment method (Forma de Pagamento), vendor name (Vendedor), grand total.

3. **Line items**: one entry per product or service row with description, product code, quantity, unit price, discount percent and line total. Never invent rows that are not printed on the receipt.

4. **Vehicle**: make (Marca), model (Modelo), year (Ano), plate (Placa), color (Cor).

5. **Team**: installer name (Instalador/Técnico) and vendor name.

6. **Notes**: free text under Observações/Obs.

Brazilian amounts use a comma as decimal separator ("R$ 1.234,56" is 1234.56). Return amounts as JSON numbers in dot notation.

Return ONLY valid JSON in this exact format:
{
  "client": {"name": "", "taxId": "", "address": "", "phone": "", "email": ""},
  "order": {"number": "", "date": "", "paymentMethod": "", "vendorName": "", "totalValue": 0.00},
  "lineItems": [
    {"description": "", "code": "", "quantity": 1, "unitPrice": 0.00, "discountPercent": 0, "lineTotal": 0.00}
  ],
  "vehicle": {"make": "", "model": "", "year": "", "plate": "", "color": ""},
  "team": {"installerName": "", "vendorName": ""},
  "notes": ""
}

Important:
- Use an empty string for any text field you cannot find and 0 for any number you cannot find
- quantity must be an integer
- lineItems must be an empty array when no product rows are printed
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// buildPrompt appends the receipt text to the shared prompt
func buildPrompt(text string) string {
	var b strings.Builder
	b.WriteString(orderScanPrompt)
	b.WriteString("\n\nReceipt text:\n\"\"\"\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\"\"\"")
	return b.String()
}
