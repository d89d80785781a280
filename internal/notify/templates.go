package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"jobpilot/apply-service/internal/model"
)

var summaryTmpl = template.Must(template.New("summary").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2>We applied to {{len .Applied}} job{{if ne (len .Applied) 1}}s{{end}} for you</h2>
  <p>Hi {{.Name}},</p>
  <p>Here is what went out in the latest round:</p>
  <ul>
    {{range .Applied}}<li><strong>{{.Title}}</strong> at {{.Company}}</li>
    {{end}}
  </ul>
  <p>You can track every application from your dashboard.</p>
</body>
</html>`))

var missingTmpl = template.Must(template.New("missing").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2>We need a few more details</h2>
  <p>Hi {{.Name}},</p>
  <p>The application for <strong>{{.Posting.Title}}</strong> at {{.Posting.Company}}
  asks for information not yet on file for {{.ProfileName}}:</p>
  <ul>
    {{range .Missing}}<li>{{.}}</li>
    {{end}}
  </ul>
  <p>Add it in your profile settings and we will pick the job up on the next round.</p>
</body>
</html>`))

type summaryData struct {
	Name    string
	Applied []model.Application
}

type missingData struct {
	Name        string
	ProfileName string
	Posting     model.JobPosting
	Missing     []string
}

func renderSummary(name string, applied []model.Application) (string, error) {
	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, summaryData{Name: name, Applied: applied}); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

func renderMissing(name, profileName string, posting model.JobPosting, missing []string) (string, error) {
	var buf bytes.Buffer
	data := missingData{Name: name, ProfileName: profileName, Posting: posting, Missing: missing}
	if err := missingTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render missing-details: %w", err)
	}
	return buf.String(), nil
}
