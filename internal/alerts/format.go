package alerts

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"incidentsim/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

var severityColors = map[models.Severity]string{
	models.Critical: "#ff0000",
	models.High:     "#ff4500",
	models.Medium:   "#ffa500",
	models.Low:      "#ffff00",
}

var htmlTemplate = template.Must(template.New("alert").Parse(`<html>
<head>
<style>
body { background-color: #0a0a0a; color: #00ff00; font-family: 'Courier New', monospace; padding: 20px; }
.container { border: 1px solid #00ff00; padding: 20px; max-width: 600px; margin: 0 auto; }
.details { background-color: #0f0f0f; padding: 15px; border-left: 3px solid #ff0000; }
.severity { display: inline-block; padding: 5px 10px; font-weight: bold; color: #000000; background-color: {{.Color}}; }
.plan { border: 1px dashed #00ff00; padding: 15px; margin-top: 20px; }
.timestamp { color: #888888; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
<h1>SECURITY ALERT</h1>
<div class="timestamp">{{.Time}}</div>
<div class="details">
<h2>Incident #{{.ID}}</h2>
<p><strong>Attack Type:</strong> {{.AttackType}}</p>
<p><strong>Severity:</strong> <span class="severity">{{.Severity}}</span></p>
<p><strong>Location:</strong> {{.Region}} ({{.Country}})</p>
<p><strong>Coordinates:</strong> LAT: {{.Lat}} LON: {{.Lon}}</p>
</div>
<div class="plan">
<h3>Recommended Response Plan</h3>
<p>{{.Plan}}</p>
</div>
<p>This is an automated alert for a simulated incident.</p>
</div>
</body>
</html>
`))

type htmlView struct {
	ID         int64
	Time       string
	AttackType string
	Severity   string
	Color      template.CSS
	Region     string
	Country    string
	Lat        string
	Lon        string
	Plan       string
}

// Format renders inc as an alert with a plain-text and an HTML body.
func Format(inc models.Incident) models.AlertPayload {
	ts := inc.Timestamp.Format(timeLayout)
	lat := fmt.Sprintf("%.2f", inc.Coordinates.Lat)
	lon := fmt.Sprintf("%.2f", inc.Coordinates.Lon)
	plan := inc.ResponsePlan
	if strings.TrimSpace(plan) == "" {
		plan = "No specific response plan"
	}

	var text strings.Builder
	text.WriteString("SECURITY INCIDENT DETECTED\n\n")
	fmt.Fprintf(&text, "Incident ID: %d\n", inc.ID)
	fmt.Fprintf(&text, "Time: %s\n", ts)
	fmt.Fprintf(&text, "Attack Type: %s\n", inc.AttackType)
	fmt.Fprintf(&text, "Severity: %s\n", inc.Severity)
	fmt.Fprintf(&text, "Region: %s\n", inc.Region)
	fmt.Fprintf(&text, "Country: %s\n", inc.CountryCode)
	fmt.Fprintf(&text, "Coordinates: LAT %s LON %s\n\n", lat, lon)
	fmt.Fprintf(&text, "Recommended Response:\n%s\n", plan)

	color, ok := severityColors[inc.Severity]
	if !ok {
		color = "#ffffff"
	}

	var html bytes.Buffer
	// The template is static and every field is a string; execution cannot fail.
	_ = htmlTemplate.Execute(&html, htmlView{
		ID:         inc.ID,
		Time:       ts,
		AttackType: inc.AttackType,
		Severity:   inc.Severity.String(),
		Color:      template.CSS(color),
		Region:     inc.Region,
		Country:    inc.CountryCode,
		Lat:        lat,
		Lon:        lon,
		Plan:       plan,
	})

	return models.AlertPayload{
		IncidentID: inc.ID,
		Subject:    fmt.Sprintf("SECURITY ALERT: %s Detected", inc.AttackType),
		Severity:   inc.Severity,
		Text:       text.String(),
		HTML:       html.String(),
		Incident:   inc,
	}
}
