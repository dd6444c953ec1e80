package email

// Provider отправляет письма
type Provider interface {
	Send(email *Email) error
	// SendTemplate рендерит шаблон и отправляет результат как HTML
	SendTemplate(to []string, subject, templateName string, data TemplateData) error
}

// TemplateRenderer рендерит именованные шаблоны
type TemplateRenderer interface {
	Render(templateName string, data TemplateData) (string, error)
	AddTemplate(name string, template string) error
	LoadTemplates(dirPath string) error
}
