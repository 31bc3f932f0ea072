package extract

import "encoding/json"

// recordSchema constrains backend generation to the canonical record shape.
var recordSchema = json.RawMessage(`{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "title": { "type": "string" },
      "blurb": { "type": "string" },
      "description": { "type": "string" },
      "guid": { "type": "string" },
      "activity_or_event": { "type": "string" },
      "url": { "type": "string" },
      "price_display": { "type": "string" },
      "price": { "type": "number" },
      "is_free": { "type": "boolean" },
      "organiser": { "type": "string" },
      "age_group_display": { "type": "string" },
      "min_age": { "type": "number" },
      "max_age": { "type": "number" },
      "datetime_display": { "type": "string" },
      "start_datetime": { "type": "string", "format": "date-time" },
      "end_datetime": { "type": "string", "format": "date-time" },
      "venue_name": { "type": "string" },
      "categories": { "type": "array", "items": { "type": "string" } }
    },
    "required": ["title", "description", "start_datetime", "end_datetime", "venue_name"]
  }
}`)
