package search

// DefaultIndexName is the index imported cards are written to.
const DefaultIndexName = "catalog_cards"

// indexMapping keeps card titles searchable as text and every facet the
// storefront filters on as a keyword.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "card_autocomplete": {
          "type": "custom",
          "tokenizer": "card_edge_ngram",
          "filter": ["lowercase", "asciifolding"]
        },
        "card_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "card_edge_ngram": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "product_id":  { "type": "keyword" },
      "variant_id":  { "type": "keyword" },
      "sku":         { "type": "keyword" },
      "handle":      { "type": "keyword" },
      "title":       { "type": "text", "analyzer": "card_search", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "card_autocomplete", "search_analyzer": "card_search" } } },
      "subtitle":    { "type": "keyword" },
      "oracle_id":   { "type": "keyword" },
      "set_code":    { "type": "keyword" },
      "collector_number": { "type": "keyword" },
      "finish":      { "type": "keyword" },
      "rarity":      { "type": "keyword" },
      "set_name":    { "type": "keyword" },
      "promo":       { "type": "boolean" },
      "price":       { "type": "long" },
      "currency":    { "type": "keyword" },
      "image_url":   { "type": "keyword", "index": false },
      "imported_at": { "type": "date" }
    }
  }
}`
