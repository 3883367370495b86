package graphql

const chatFields = `id title user_id created_at updated_at`

const messageFields = `id chat_id role content created_at`

const summaryFields = chatFields + `
    messages_aggregate { aggregate { count } }
    messages(order_by: {created_at: desc}, limit: 1) { ` + messageFields + ` }`

const insertChatMutation = `mutation InsertChat($object: chats_insert_input!) {
  insert_chats_one(object: $object) { ` + chatFields + ` }
}`

const getChatQuery = `query GetChat($id: uuid!, $owner: String!) {
  chats(where: {id: {_eq: $id}, user_id: {_eq: $owner}}, limit: 1) { ` + chatFields + ` }
}`

const renameChatMutation = `mutation RenameChat($id: uuid!, $owner: String!, $title: String!, $now: timestamptz!) {
  update_chats(where: {id: {_eq: $id}, user_id: {_eq: $owner}}, _set: {title: $title, updated_at: $now}) {
    returning { ` + chatFields + ` }
  }
}`

const deleteChatMutation = `mutation DeleteChat($id: uuid!, $owner: String!) {
  delete_messages(where: {chat_id: {_eq: $id}}) { affected_rows }
  delete_chats(where: {id: {_eq: $id}, user_id: {_eq: $owner}}) { affected_rows }
}`

const listChatsQuery = `query ListChats($owner: String!) {
  chats(where: {user_id: {_eq: $owner}}, order_by: {updated_at: desc}) { ` + summaryFields + ` }
}`

// appendMessageMutation inserts the message and bumps the chat in one transaction.
const appendMessageMutation = `mutation AppendMessage($message: messages_insert_input!, $chatId: uuid!, $now: timestamptz!) {
  insert_messages_one(object: $message) { ` + messageFields + ` }
  update_chats_by_pk(pk_columns: {id: $chatId}, _set: {updated_at: $now}) { id }
}`

const listMessagesQuery = `query ListMessages($chatId: uuid!) {
  messages(where: {chat_id: {_eq: $chatId}}, order_by: {created_at: asc}) { ` + messageFields + ` }
}`

const messagesSubscription = `subscription WatchMessages($chatId: uuid!) {
  messages(where: {chat_id: {_eq: $chatId}}, order_by: {created_at: asc}) { ` + messageFields + ` }
}`

const directorySubscription = `subscription WatchChats($owner: String!) {
  chats(where: {user_id: {_eq: $owner}}, order_by: {updated_at: desc}) { ` + summaryFields + ` }
}`
