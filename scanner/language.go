package scanner

import (
	"path/filepath"
	"strings"
)

// languageByExt maps file extensions to the language names used in rule-set
// files. Unknown extensions yield "", which matches only language-agnostic
// rules.
var languageByExt = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".java": "java",
	".rb":   "ruby",
	".php":  "php",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".cs":   "csharp",
	".rs":   "rust",
	".sh":   "shell",
	".bash": "shell",
	".ps1":  "powershell",
}

// LanguageForPath infers the rule-set language name from a file path.
func LanguageForPath(path string) string {
	return languageByExt[strings.ToLower(filepath.Ext(path))]
}
