package mcpserver

// SchemaURI names the artifact schema resource.
const SchemaURI = "linkgraph://schema"

// GraphSchema describes the graph artifact for MCP consumers.
const GraphSchema = `# Graph Artifact Schema

The build writes one compact JSON document:

` + "```" + `json
{
  "nodes": [
    {
      "id": "my-post",
      "title": "My Post",
      "slug": "/my-post/",
      "exists": true,
      "isTag": false,
      "isSnippet": false,
      "accessible": true,
      "linkCount": 2,
      "incomingLinks": 0,
      "totalLinks": 0
    }
  ],
  "links": [
    { "source": "my-post", "target": "tag-foo", "targetTitle": "foo" }
  ]
}
` + "```" + `

## Node ids

- Posts use their directory name: ` + "`" + `my-post` + "`" + `.
- Snippets are prefixed: ` + "`" + `snippet-<dir>` + "`" + `.
- Tags are prefixed: ` + "`" + `tag-<slug>` + "`" + `.
- Unresolved references become placeholder nodes with ` + "`" + `exists: false` + "`" + `.
  Placeholder posts have ` + "`" + `slug: null` + "`" + `; placeholder snippets keep
  ` + "`" + `/snippets/<slug>/` + "`" + `.

## Counts

- ` + "`" + `linkCount` + "`" + `: references plus tags for content, item count for tags,
  0 for placeholders.
- ` + "`" + `incomingLinks` + "`" + ` / ` + "`" + `totalLinks` + "`" + `: links targeting the node. For tags
  both equal the number of items carrying the tag.

## Visibility

- Hidden snippets (` + "`" + `hidden_snippets.json` + "`" + `) never appear as nodes or link ends.
- Snippets failing quality review stay in the graph with ` + "`" + `accessible: false` + "`" + `.

## References

- ` + "`" + `[[Title]]` + "`" + ` and ` + "`" + `[[Title|Label]]` + "`" + ` resolve against item titles, case-insensitively.
- ` + "`" + `[text](/snippets/<slug>/)` + "`" + ` targets a snippet by slug.
- Only posts originate reference links; posts and snippets both originate tag links.
`
