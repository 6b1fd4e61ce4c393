package rule

import "embed"

// builtinRulesFS embeds the built-in rule sources.
//
//go:embed rules/*.yar
var builtinRulesFS embed.FS

// builtinRulesetsFS embeds the built-in rulesets.
//
//go:embed rulesets/*.yml
var builtinRulesetsFS embed.FS
