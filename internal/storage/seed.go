package storage

import "time"

// Seed identity shared by both backends.
const (
	SeedUsername       = "john.doe"
	seedPassword       = "hashed_password"
	seedGithubUsername = "john.doe"
)

type seedRepository struct {
	name     string
	url      string
	language string
	age      time.Duration
}

var seedRepositories = []seedRepository{
	{name: "portfolio-site", url: "https://github.com/john.doe/portfolio-site", language: "Next.js", age: 2 * 24 * time.Hour},
	{name: "ecommerce-app", url: "https://github.com/john.doe/ecommerce-app", language: "React", age: 7 * 24 * time.Hour},
	{name: "blog-platform", url: "https://github.com/john.doe/blog-platform", language: "Vue.js", age: 3 * 24 * time.Hour},
	{name: "company-website", url: "https://github.com/john.doe/company-website", language: "HTML/CSS", age: 5 * 24 * time.Hour},
}

func seedUser() NewUser {
	github := seedGithubUsername
	return NewUser{
		Username:       SeedUsername,
		Password:       seedPassword,
		GithubUsername: &github,
	}
}

// seedRepositoryRecords returns the demo repositories owned by userID with
// lastUpdated offsets relative to now.
func seedRepositoryRecords(userID int64, now time.Time) []Repository {
	repos := make([]Repository, 0, len(seedRepositories))
	for _, seed := range seedRepositories {
		language := seed.language
		lastUpdated := now.Add(-seed.age)
		repos = append(repos, Repository{
			UserID:      userID,
			Name:        seed.name,
			URL:         seed.url,
			Language:    &language,
			LastUpdated: &lastUpdated,
			IsActive:    true,
		})
	}
	return repos
}
