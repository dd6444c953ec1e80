package email

// Email - одно письмо. Если HTMLBody пуст, отправляется Body как text/plain.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// TemplateData - данные для шаблонов писем
type TemplateData map[string]interface{}
