package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for addon documents.
// Text fields use English stemming; tags, license and repository are
// matched exactly.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = en.AnalyzerName
	nameField.Store = true
	nameField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameField)

	shortDescField := bleve.NewTextFieldMapping()
	shortDescField.Analyzer = en.AnalyzerName
	shortDescField.Store = true
	docMapping.AddFieldMappingsAt("short_description", shortDescField)

	// Not stored, can be large.
	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = en.AnalyzerName
	descField.Store = false
	docMapping.AddFieldMappingsAt("description", descField)

	// Simple analyzer splits "acme/forms" into searchable parts without stemming.
	composerField := bleve.NewTextFieldMapping()
	composerField.Analyzer = simple.Name
	composerField.Store = true
	docMapping.AddFieldMappingsAt("composer_name", composerField)

	// Keyword keeps compound slugs intact (e.g. "date-picker").
	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = keyword.Name
	tagsField.Store = true
	tagsField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("tags", tagsField)

	licenseField := bleve.NewTextFieldMapping()
	licenseField.Analyzer = keyword.Name
	licenseField.Store = true
	docMapping.AddFieldMappingsAt("license", licenseField)

	repoField := bleve.NewTextFieldMapping()
	repoField.Analyzer = keyword.Name
	repoField.Store = true
	docMapping.AddFieldMappingsAt("repository", repoField)

	updatedAtField := bleve.NewNumericFieldMapping()
	updatedAtField.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtField)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
