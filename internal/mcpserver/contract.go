package mcpserver

// RecordFormatContract describes the record fields and validation
// rules that LLM consumers must follow when adding records.
const RecordFormatContract = `# Shelf Record Format Contract

Every record stored in Shelf is either a **book** or a **note** and
carries the fields below. Fields marked optional may be omitted or
empty.

## Fields

| Field  | Required | Rules |
|--------|----------|-------|
| type   | yes      | ` + "`book`" + ` or ` + "`note`" + ` |
| title  | yes      | No leading or trailing spaces. No immediately repeated word, case-insensitive ("The The Hobbit" is rejected). |
| author | no       | Free text. |
| pages  | no       | Non-negative number with at most two decimal places: ` + "`0`" + `, ` + "`12`" + `, ` + "`12.5`" + `, ` + "`12.34`" + `. No sign, no scientific notation. |
| tag    | no       | Alphabetic groups separated by single spaces or hyphens: ` + "`sci-fi`" + `, ` + "`military history`" + `. No digits or other punctuation, no doubled or dangling separators. |
| isbn   | no       | Free text, not validated. |
| notes  | no       | Free text body (typically used for type=note). |

Ids and the ` + "`dateAdded`" + `/` + "`createdAt`" + `/` + "`updatedAt`" + `
timestamps are assigned by Shelf; never supply them.

## Behavior

1. Validation runs before commit. A rejected field aborts the whole
   add; nothing is stored.
2. Tags group records on the dashboard. Reuse an existing tag when one
   fits — tag matching is case-sensitive, so prefer the exact spelling
   returned by existing records.
3. Pages is meaningful for books only, but is accepted on notes.

## Example

` + "```" + `json
{
  "type": "book",
  "title": "Dune",
  "author": "Frank Herbert",
  "pages": "412",
  "tag": "sci-fi",
  "isbn": "9780441013593"
}
` + "```" + `
`
