package email

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами уведомлений
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for name, body := range builtinTemplates {
		template.Must(tm.addTemplate(name, body))
	}
	return tm
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет или заменяет шаблон
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	_, err := tm.addTemplate(name, templateStr)
	return err
}

func (tm *TemplateManager) addTemplate(name string, templateStr string) (*template.Template, error) {
	tpl, err := template.New(name).Parse(layoutHead + templateStr + layoutFoot)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return tpl, nil
}

// LoadTemplates загружает шаблоны из директории
func (tm *TemplateManager) LoadTemplates(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", path, err)
		}

		templateName := strings.TrimSuffix(filepath.Base(path), ".html")
		if err := tm.AddTemplate(templateName, string(content)); err != nil {
			return fmt.Errorf("failed to add template %s: %w", templateName, err)
		}

		return nil
	})
}

// TemplateNames возвращает список имен загруженных шаблонов
func (tm *TemplateManager) TemplateNames() []string {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	names := make([]string, 0, len(tm.templates))
	for name := range tm.templates {
		names = append(names, name)
	}

	return names
}

const (
	layoutHead = `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222">`
	layoutFoot = `<p style="color:#888;font-size:12px">Gigboard</p></body></html>`
)

// builtinTemplates - письма по доменным событиям; ключ совпадает с типом уведомления
var builtinTemplates = map[string]string{
	"notification": `<h2>{{.Title}}</h2><p>{{.Message}}</p>`,
	"showcase.approved": `<h2>Your showcase is live</h2>
<p>Every participant approved the showcase for <b>{{.GigTitle}}</b>. It is now public.</p>`,
	"showcase.changes_requested": `<h2>Changes requested</h2>
<p>A participant asked for changes to the showcase for <b>{{.GigTitle}}</b>:</p>
<blockquote>{{.Note}}</blockquote>`,
	"application.status_changed": `<h2>Application update</h2>
<p>Your application to <b>{{.GigTitle}}</b> is now <b>{{.Status}}</b>.</p>`,
}
