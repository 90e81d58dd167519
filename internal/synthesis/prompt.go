package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nlquery/analyst/internal/examples"
	"github.com/nlquery/analyst/internal/retrieval"
)

// buildPrompt renders the generation prompt: instructions, retrieved
// schema context, few-shot examples, the question, and on retries the
// validation feedback from the failed attempt.
func buildPrompt(question string, retrieved *retrieval.Context, fewShot []examples.Example, feedback []string) string {
	var b strings.Builder

	b.WriteString("You are a SQL analyst. Write a single read-only SQL query answering the question.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use only the tables and columns listed in the schema context.\n")
	b.WriteString("- Always schema-qualify table names and use lowercase identifiers.\n")
	b.WriteString("- Do not nest aggregate functions.\n")
	b.WriteString("- Do not emit USE DATABASE or any statement that modifies data.\n")
	b.WriteString("- Respond with only the SQL, no explanation.\n\n")

	b.WriteString("Schema context:\n")

	for _, doc := range retrieved.Documents {
		b.WriteString(doc.Text)
		b.WriteString("\n\n")
	}

	if len(fewShot) > 0 {
		b.WriteString("Examples:\n")

		for _, ex := range fewShot {
			fmt.Fprintf(&b, "Question: %s\nSQL: %s\n\n", ex.Question, ex.SQL)
		}
	}

	if len(feedback) > 0 {
		b.WriteString("Your previous attempt had errors:\n")

		for _, e := range feedback {
			fmt.Fprintf(&b, "- %s\n", e)
		}

		b.WriteString("Rewrite the query using only the listed valid columns.\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\nSQL:", question)

	return b.String()
}

var (
	codeFencePattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	useLinePattern   = regexp.MustCompile(`(?im)^\s*USE\s+\w.*$`)
)

// CleanResponse strips code-fence markup and USE statements from a raw
// model response, leaving the bare SQL.
func CleanResponse(raw string) string {
	sql := raw

	if m := codeFencePattern.FindStringSubmatch(raw); m != nil {
		sql = m[1]
	} else {
		sql = strings.ReplaceAll(sql, "```sql", "")
		sql = strings.ReplaceAll(sql, "```", "")
	}

	sql = useLinePattern.ReplaceAllString(sql, "")

	return strings.TrimSpace(sql)
}
