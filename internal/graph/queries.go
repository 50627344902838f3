package graph

// Query documents sent to the guild subgraph. They take no variables.
const (
	membersQuery = `{
  members(where: { shares_gt: 0, isActive: true }) {
    id
  }
}`

	proposalsQuery = `{
  proposals {
    id
  }
}`

	metadataQuery = `{
  meta(id: "") {
    guildBankValue
    exchangeRate
    totalShares
    shareValue
  }
}`
)
