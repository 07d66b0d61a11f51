package catalog

// FallbackImage is used for battlegroups without their own artwork
const FallbackImage = "/images/battlegroups/전투단.png"

var defaultFactions = []FactionDef{
	{
		ID:   "영국",
		Name: "영국군",
		Loadouts: []string{
			"인도 포병 전투단",
			"영국 중기갑 전투단",
			"영국 공군 및 해군 전투단",
			"오스트레일리아 수비 전투단",
			"캐나다 충격군 전투단",
			"폴란드 기병 전투단",
		},
	},
	{
		ID:   "미국",
		Name: "미군",
		Loadouts: []string{
			"중화기 전투단",
			"공수 전투단",
			"기갑 전투단",
			"특수 작전 전투단",
			"고급 보병 전투단",
			"이탈리아 파르티잔 전투단",
		},
	},
	{
		ID:   "국방",
		Name: "국방군",
		Loadouts: []string{
			"루프트바페 전투단",
			"기계화 전투단",
			"전선 돌파 전투단",
			"이탈리아 해안 전투단",
			"공포 전투단",
			"최후의 저항 전투단",
		},
	},
	{
		ID:   "아프리카",
		Name: "아프리카 군단",
		Loadouts: []string{
			"이탈리아 보병 전투단",
			"이탈리아 제병협동 전투단",
			"기갑 지원 전투단",
			"전장 첩보 전투단",
			"기갑엽병 지휘부 전투단",
			"크릭스마리네 전투단",
		},
	},
}

var defaultImages = map[string]string{
	"인도 포병 전투단":      "/images/battlegroups/indian_artillery_uk_square.webp",
	"영국 중기갑 전투단":     "/images/battlegroups/armored_uk_square.webp",
	"영국 공군 및 해군 전투단": "/images/battlegroups/air_and_sea_uk_square.webp",
	"오스트레일리아 수비 전투단": "/images/battlegroups/ausdefense_uk_square.webp",
	"캐나다 충격군 전투단":    "/images/battlegroups/can_shock_uk_square.webp",
	"폴란드 기병 전투단":     "/images/battlegroups/polish_cavalry_uk_square.webp",
	"중화기 전투단":        "/images/battlegroups/special_weapons_us_square.webp",
	"공수 전투단":         "/images/battlegroups/paratroopers_us_square.webp",
	"기갑 전투단":         "/images/battlegroups/armored_us_square.webp",
	"특수 작전 전투단":      "/images/battlegroups/spec_ops_us_square.webp",
	"고급 보병 전투단":      "/images/battlegroups/infantry_us_square.webp",
	"이탈리아 파르티잔 전투단":  "/images/battlegroups/italian_partisan_us_square.webp",
	"루프트바페 전투단":      "/images/battlegroups/luftwaffe_ger_square.webp",
	"기계화 전투단":        "/images/battlegroups/mechanized_ger_square.webp",
	"전선 돌파 전투단":      "/images/battlegroups/breakthrough_ger_square.webp",
	"이탈리아 해안 전투단":    "/images/battlegroups/coastal_ger_square.webp",
	"공포 전투단":         "/images/battlegroups/terror_ger_square.webp",
	"최후의 저항 전투단":     "/images/battlegroups/last_stand_ger_square.webp",
	"이탈리아 보병 전투단":    "/images/battlegroups/italian_infantry_ak_square.webp",
	"이탈리아 제병협동 전투단":  "/images/battlegroups/combined_arms_ak_square.webp",
	"기갑 지원 전투단":      "/images/battlegroups/armored_ak_square.webp",
	"전장 첩보 전투단":      "/images/battlegroups/dak_battlefield_ak_square.webp",
	"기갑엽병 지휘부 전투단":   "/images/battlegroups/panzerjager_kommand_ak_square.webp",
	"크릭스마리네 전투단":     "/images/battlegroups/kriegsmarine_ak_square.webp",
}

// DefaultMapPool is used by tournaments created without their own pool
var DefaultMapPool = []string{
	"단장의 골목",
	"두 해변",
	"랑그로",
	"볼로냐",
	"빌라 피오레",
	"세무아",
	"숲속 교차로",
	"앙고빌 농장",
	"자발 오솔길",
	"정원",
	"타란토 해안",
	"토스카나 포도밭",
	"튀니지로 가는 길",
	"파치노 교착점",
	"페몽빌",
}

// Default returns the championship catalog
func Default() *Catalog {
	c, err := New(defaultFactions, defaultImages, FallbackImage)
	if err != nil {
		panic(err)
	}
	return c
}
