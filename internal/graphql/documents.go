package graphql

// Operation documents for the note schema. The selection set matches the
// fields of models.Note.
const noteFields = `
    id
    name
    description
    image
    createdAt
    updatedAt`

// ListNotes fetches every note.
const ListNotes = `query ListNotes(
  $filter: ModelNoteFilterInput
  $limit: Int
  $nextToken: String
) {
  listNotes(filter: $filter, limit: $limit, nextToken: $nextToken) {
    items {` + noteFields + `
    }
    nextToken
  }
}`

// CreateNote creates a note and returns it.
const CreateNote = `mutation CreateNote(
  $input: CreateNoteInput!
  $condition: ModelNoteConditionInput
) {
  createNote(input: $input, condition: $condition) {` + noteFields + `
  }
}`

// DeleteNote deletes a note by id and returns it.
const DeleteNote = `mutation DeleteNote(
  $input: DeleteNoteInput!
  $condition: ModelNoteConditionInput
) {
  deleteNote(input: $input, condition: $condition) {` + noteFields + `
  }
}`
