package rewrite

import (
	"fmt"
	"strings"
)

// Field selects which prompt template the rewrite uses.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// Context carries the coupon facts the prompt embeds so the model does not
// invent store names or discount values.
type Context struct {
	Advertiser string
	Discount   string
	Code       string
}

const systemInstruction = "Você é um redator especializado em marketing de cupons e ofertas. " +
	"Reescreva textos de forma atraente e persuasiva em português brasileiro, " +
	"mantendo todas as informações factuais. Responda apenas com o texto reescrito, sem aspas ou comentários."

func buildPrompt(field Field, text string, pctx Context) string {
	var b strings.Builder

	switch field {
	case FieldTitle:
		b.WriteString("Reescreva o título abaixo de forma mais atraente, com no máximo 60 caracteres:\n\n")
	default:
		b.WriteString("Reescreva a descrição abaixo de forma mais persuasiva, entre 100 e 200 caracteres:\n\n")
	}
	b.WriteString(text)

	if pctx.Advertiser != "" {
		fmt.Fprintf(&b, "\n\nLoja: %s", pctx.Advertiser)
	}
	if pctx.Discount != "" {
		fmt.Fprintf(&b, "\nDesconto: %s", pctx.Discount)
	}
	if pctx.Code != "" {
		fmt.Fprintf(&b, "\nCódigo: %s", pctx.Code)
	}
	return b.String()
}

func maxTokensFor(field Field) int {
	if field == FieldTitle {
		return 100
	}
	return 300
}
