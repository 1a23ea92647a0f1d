// Package extract decomposes the modulux listing and detail pages into
// ListingRecords and DetailMaps.
package extract

// Structural selectors of the modulux frontend. They target a fixed external
// page and must match it exactly.
const (
	RevealSelector = "a.tx-ezqueries-link.page-link.text-nowrap"
	RevealLabel    = "Alle anzeigen"

	RowSelector      = "table.table.table-striped tbody tr.tx-ezqueries-list-row"
	CellSelector     = "th, td"
	LinkCellSelector = "td.tx-ezqueries-list-data-stg_modulux_link_value"

	DetailContainerSelector = ".tx-ezqueries-detail-rows"
	DetailRowSelector       = ".tx-ezqueries-detail-row"
	DetailLabelSelector     = ".tx-ezqueries-detail-label"
	DetailDataSelector      = ".tx-ezqueries-detail-data"

	// ContactLinkSelector matches the obfuscated mailto anchor of a contact.
	ContactLinkSelector = "a[data-mailto-token]"
	// ContactMarker is matched case-insensitively against detail labels.
	ContactMarker = "verantwortliche"
	// OrdinancesLabel is the detail label whose value is a list of documents.
	OrdinancesLabel = "Ordnungen"
)

// DefaultMinRows is the row count the listing must exceed after the reveal
// before it is considered loaded.
const DefaultMinRows = 10
