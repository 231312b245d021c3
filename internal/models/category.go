package models

// Event categories used for dimension selection and calibrator lookup.
const (
	CategoryPolitics      = "politics"
	CategoryGeopolitics   = "geopolitics"
	CategoryEconomy       = "economy"
	CategoryTechnology    = "technology"
	CategorySports        = "sports"
	CategoryEntertainment = "entertainment"
	CategoryOther         = "other"
)

// categoryOrder fixes the matching precedence: more specific domains first so
// "war" beats a generic "president" mention in the same question.
var categoryOrder = []string{
	CategoryGeopolitics,
	CategoryEconomy,
	CategorySports,
	CategoryEntertainment,
	CategoryTechnology,
	CategoryPolitics,
}

// CategoryKeywords maps keywords to categories for auto-detection.
var CategoryKeywords = map[string][]string{
	CategoryPolitics: {
		"president", "congress", "senate", "house", "vote", "trump", "biden",
		"government", "governor", "mayor", "legislation", "bill", "law",
		"republican", "democrat", "gop", "white house", "election", "ballot",
		"primary", "nominee", "electoral", "poll", "candidate", "midterm",
	},
	CategoryGeopolitics: {
		"war", "conflict", "military", "nato", "russia", "ukraine", "china",
		"taiwan", "iran", "israel", "palestine", "ceasefire", "sanctions",
		"treaty", "summit", "diplomacy", "embassy", "united nations",
	},
	CategoryEconomy: {
		"fed", "federal reserve", "interest rate", "inflation", "gdp",
		"recession", "unemployment", "jobs report", "cpi", "treasury",
		"fiscal", "monetary", "debt ceiling", "deficit", "stock", "nasdaq",
		"s&p", "bitcoin", "btc", "ethereum", "crypto", "tariff",
	},
	CategoryTechnology: {
		"ai", "artificial intelligence", "openai", "chatgpt", "gemini",
		"google", "apple", "microsoft", "meta", "amazon", "tesla", "nvidia",
		"semiconductor", "chip", "software", "startup", "spacex", "launch",
		"model release", "gpt",
	},
	CategorySports: {
		"nfl", "nba", "mlb", "nhl", "soccer", "football", "basketball",
		"baseball", "hockey", "super bowl", "world series", "championship",
		"playoffs", "finals", "mvp", "world cup", "olympics", "grand slam",
	},
	CategoryEntertainment: {
		"movie", "film", "oscars", "grammy", "emmys", "celebrity", "music",
		"album", "tour", "concert", "tv show", "streaming", "netflix",
		"disney", "box office", "viral", "tiktok",
	},
}
