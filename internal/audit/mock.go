package audit

import "github.com/MarcoPoloResearchLab/seoaudit/internal/storage"

// MockIssues returns the fixed findings attached to every demo audit.
func MockIssues() []storage.Issue {
	return []storage.Issue{
		{Error: "Missing meta description", File: "pages/index.js", Line: 12, Severity: storage.SeverityCritical},
		{Error: "Title too short", File: "pages/about.js", Line: 8, Severity: storage.SeverityCritical},
		{Error: "Missing alt text", File: "components/Hero.js", Line: 24, Severity: storage.SeverityWarning},
	}
}

// MockFixes returns the fixed suggestions attached to every demo fix report.
func MockFixes() []storage.Fix {
	return []storage.Fix{
		{
			Title:       "Meta Description",
			Description: "Add this meta description to your index.js file:",
			Code:        `<meta name="description" content="Professional portfolio showcasing modern web development projects and skills" />`,
			File:        "pages/index.js",
		},
		{
			Title:       "Title Optimization",
			Description: "Update your about page title:",
			Code:        `<title>About John Doe - Full Stack Developer | Portfolio</title>`,
			File:        "pages/about.js",
		},
		{
			Title:       "Alt Text",
			Description: "Add descriptive alt text to your hero image:",
			Code:        `<img src="hero.jpg" alt="Professional headshot of John Doe, web developer" />`,
			File:        "components/Hero.js",
		},
	}
}
