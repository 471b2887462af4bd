// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package haproxy

import (
	"bytes"
	"os"
	"text/template"
)

// configTemplate is the built-in configuration layout. Operators may point
// config-template at a file with the same data contract to override it.
const configTemplate = `# Configuration for loadbalancer {{.Name}}
global
    daemon
    user {{.User}}
    group {{.Group}}
    log /dev/log local0
    log /dev/log local1 notice
    stats socket {{.StatsSocket}} mode 0666 level user

defaults
    log global
    retries 3
    option redispatch
    timeout connect 5000
    timeout client 50000
    timeout server 50000
{{range .Frontends}}
frontend {{.ID}}
    bind {{.Bind}}
    mode {{.Mode}}
{{- if .MaxConn}}
    maxconn {{.MaxConn}}
{{- end}}
{{- range .Options}}
    {{.}}
{{- end}}
{{- range .ACLs}}
    {{.}}
{{- end}}
{{- range .Actions}}
    {{.}}
{{- end}}
{{- if .DefaultBackend}}
    default_backend {{.DefaultBackend}}
{{- end}}
{{end}}
{{- range .Backends}}
backend {{.ID}}
    mode {{.Mode}}
    balance {{.Balance}}
{{- range .Options}}
    {{.}}
{{- end}}
{{- range .Servers}}
    {{.}}
{{- end}}
{{end}}`

func executeTemplate(data configData, templatePath string) (string, error) {
	text := configTemplate
	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			return "", err
		}
		text = string(raw)
	}
	tmpl, err := template.New("haproxy").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
