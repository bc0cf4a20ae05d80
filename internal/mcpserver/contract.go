package mcpserver

// MirrorFormatContract describes how a local tree maps onto remote pages
// and blocks, so LLM consumers know what mirror_folder will produce.
const MirrorFormatContract = `# Raido Mirror Mapping Contract

mirror_folder reproduces a local folder tree as nested pages under an
existing parent page. The mapping below is fixed; there are no options to
change it beyond the ones listed at the end.

## Structure

- The folder itself becomes the root page, titled with its base name.
- Every subdirectory becomes a page under its parent directory's page.
- Every file becomes a page under its directory's page, titled with the
  full file name **including the extension** (` + "`" + `notes.txt` + "`" + `, not ` + "`" + `notes` + "`" + `).
- Each directory's entries are visited depth-first in a single
  alphabetical pass (byte-wise name order), files and subdirectories
  interleaved. Page creation order follows that traversal exactly.

## File content

- Text-like files (` + "`" + `.txt` + "`" + `, ` + "`" + `.md` + "`" + `, ` + "`" + `.markdown` + "`" + `, ` + "`" + `.docx` + "`" + `, ` + "`" + `.rtf` + "`" + `) are extracted
  to plain text and appended as paragraph blocks of at most 2000
  characters each. Concatenating a page's blocks in order reproduces the
  extracted text exactly. Markdown loses formatting but keeps text, code
  and table content; YAML frontmatter is dropped.
- An empty text file produces a page with zero blocks.
- Every other file produces exactly one external file-reference block:
  a placeholder link ` + "`" + `https://example.com/files/<name>` + "`" + ` with the file
  name as display text. File bytes are never uploaded.
- ` + "`" + `.doc` + "`" + ` is recognized but not extracted; it gets the file-reference
  block like any binary.
- A text-like file whose content cannot be decoded degrades to the
  file-reference block instead of failing the run.

## Failure and scope

- Hidden entries (names starting with ` + "`" + `.` + "`" + `) are skipped unless the server
  was configured with ` + "`" + `include_hidden` + "`" + `.
- Under the default ` + "`" + `abort` + "`" + ` policy the first failed subtree stops the
  run; under ` + "`" + `skip` + "`" + ` the subtree is logged, counted in ` + "`" + `skippedSubtrees` + "`" + `,
  and siblings continue. Root failures always stop the run.
- Pages are only ever created, never updated or deleted: mirroring the
  same folder twice produces two independent trees.
`
