package mcpserver

// DeckFormatContract describes the canonical card format that LLM consumers
// must follow when creating decks.
const DeckFormatContract = `# Deck Import Contract

The ` + "`" + `cards` + "`" + ` argument of ` + "`" + `create_deck` + "`" + ` MUST be a JSON array of card objects.

## Structure

` + "```" + `json
[
  {"front": "Question or prompt text", "back": "Answer text"},
  {"front": "What is the powerhouse of the cell?", "back": "The mitochondrion"}
]
` + "```" + `

## Rules

1. **Both fields are required.** Every card carries a non-blank ` + "`" + `front` + "`" + ` and
   ` + "`" + `back` + "`" + `; whitespace-only values are rejected.
2. **Order is preserved.** Cards are studied in array order; put prerequisite
   material first.
3. **No extra fields.** Ids, order numbers, and missed flags are assigned by the
   server; do not include them.
4. **Plain text only.** Card faces are rendered verbatim; do not embed HTML or
   Markdown markup.
5. **Stack targeting.** Pass ` + "`" + `stack_id` + "`" + ` to file the deck under an existing
   stack, or omit it to use the general stack. Unknown stack ids are rejected;
   list stacks first with ` + "`" + `list_stacks` + "`" + `.

## Example call

` + "```" + `json
{
  "title": "Cell biology basics",
  "stack_id": "general",
  "cards": "[{\"front\": \"What is a cell?\", \"back\": \"The basic unit of life\"}]"
}
` + "```" + `

Note that ` + "`" + `cards` + "`" + ` is passed as a JSON **string** containing the array.
`
