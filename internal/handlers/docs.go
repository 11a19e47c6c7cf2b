package handlers

import (
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"pandemic-dashboard/internal/models"
)

type object = map[string]interface{}

func queryParam(name, description string, schema object) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func jsonResponse(description string, schema object) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{"schema": schema},
		},
	}
}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func arrayOf(items object) object {
	return object{"type": "array", "items": items}
}

func getOperation(summary, description string, params []object, responses object) object {
	op := object{
		"summary":     summary,
		"description": description,
		"responses":   responses,
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	return object{"get": op}
}

func metricNames() []string {
	names := make([]string, len(models.Metrics))
	for i, m := range models.Metrics {
		names[i] = string(m)
	}
	return names
}

func errorResponses(codes ...int) object {
	out := object{}
	for _, code := range codes {
		out[strconv.Itoa(code)] = jsonResponse(http.StatusText(code), ref("Error"))
	}
	return out
}

func withOK(ok object, errs object) object {
	out := object{"200": ok}
	for code, resp := range errs {
		out[code] = resp
	}
	return out
}

// openAPIDocument builds the OpenAPI 3.0 description of the dashboard API
func openAPIDocument() object {
	number := object{"type": "number"}
	integer := object{"type": "integer"}
	str := object{"type": "string"}

	selectorParams := []object{
		queryParam("index", "Date index, 0 is the first loaded date (default: latest)", integer),
		queryParam("date", "Date as M/D/YY, takes precedence over index", str),
	}
	metricParam := queryParam("metric", "Metric (default: Confirmed)", object{"type": "string", "enum": metricNames()})

	snapshotRow := object{
		"type": "object",
		"properties": object{
			"country":        str,
			"confirmed":      number,
			"deaths":         number,
			"recovered":      number,
			"active":         number,
			"mortality_rate": number,
			"recovery_rate":  number,
			"latitude":       number,
			"longitude":      number,
		},
	}
	seriesPoint := object{
		"type": "object",
		"properties": object{
			"label":     str,
			"date":      object{"type": "string", "format": "date-time"},
			"confirmed": number,
			"deaths":    number,
			"recovered": number,
			"active":    number,
		},
	}
	countrySeries := object{
		"type": "object",
		"properties": object{
			"country": str,
			"points":  arrayOf(ref("SeriesPoint")),
		},
	}
	continentRow := object{
		"allOf": []object{
			ref("CountrySnapshot"),
			{
				"type": "object",
				"properties": object{
					"world":     str,
					"continent": str,
				},
			},
		},
	}
	snapshot := func(rows object) object {
		return object{
			"type": "object",
			"properties": object{
				"index":  integer,
				"date":   str,
				"metric": str,
				"rows":   arrayOf(rows),
			},
		}
	}

	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Pandemic Dashboard API",
			"description": "Per-country and global pandemic case, death and recovery figures by date",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Pandemic Dashboard Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8050", "description": "Local development server"},
		},
		"components": object{
			"schemas": object{
				"CountrySnapshot": snapshotRow,
				"SeriesPoint":     seriesPoint,
				"CountrySeries":   countrySeries,
				"ContinentRow":    continentRow,
				"Error": object{
					"type": "object",
					"properties": object{
						"error":   str,
						"message": str,
						"code":    integer,
					},
				},
			},
		},
		"paths": object{
			"/api/dates": getOperation(
				"List dates",
				"Loaded dates in ascending order and the latest index",
				nil,
				object{"200": jsonResponse("Date list", object{
					"type": "object",
					"properties": object{
						"dates":        arrayOf(str),
						"latest_index": integer,
						"loaded_at":    object{"type": "string", "format": "date-time"},
					},
				})},
			),
			"/api/snapshot": getOperation(
				"Country snapshot",
				"Per-country figures for one date; countries without cases or coordinates are omitted",
				selectorParams,
				withOK(jsonResponse("Snapshot", snapshot(ref("CountrySnapshot"))), errorResponses(http.StatusBadRequest)),
			),
			"/api/snapshot/top": getOperation(
				"Top countries",
				"The n countries with the largest metric value; Mortality_Rate ranks by Confirmed",
				append(append([]object{}, selectorParams...),
					queryParam("n", "Number of rows (default: 10)", object{"type": "integer", "default": defaultTopN, "minimum": 0, "maximum": maxTopN}),
					metricParam,
				),
				withOK(jsonResponse("Ranked snapshot", snapshot(ref("CountrySnapshot"))), errorResponses(http.StatusBadRequest)),
			),
			"/api/snapshot/totals": getOperation(
				"Global totals",
				"Summed figures of the snapshot",
				selectorParams,
				withOK(jsonResponse("Totals", object{
					"type": "object",
					"properties": object{
						"date":      str,
						"countries": integer,
						"confirmed": number,
						"deaths":    number,
						"recovered": number,
						"active":    number,
					},
				}), errorResponses(http.StatusBadRequest)),
			),
			"/api/snapshot/treemap": getOperation(
				"Continent breakdown",
				"Snapshot rows placed under World and their continent, keeping rows with a positive metric value",
				append(append([]object{}, selectorParams...), metricParam),
				withOK(jsonResponse("Treemap rows", snapshot(ref("ContinentRow"))), errorResponses(http.StatusBadRequest)),
			),
			"/api/series/global": getOperation(
				"Global series",
				"Worldwide totals for every date",
				nil,
				object{"200": jsonResponse("Series", object{
					"type":       "object",
					"properties": object{"points": arrayOf(ref("SeriesPoint"))},
				})},
			),
			"/api/series/countries": getOperation(
				"List countries",
				"Countries with confirmed figures, alphabetically",
				nil,
				object{"200": jsonResponse("Countries", object{
					"type":       "object",
					"properties": object{"countries": arrayOf(str)},
				})},
			),
			"/api/series/countries/{country}": getOperation(
				"Country series",
				"Figures of one country for every date",
				[]object{{
					"name":     "country",
					"in":       "path",
					"required": true,
					"schema":   str,
				}},
				withOK(jsonResponse("Series", ref("CountrySeries")), errorResponses(http.StatusNotFound)),
			),
			"/api/series/compare": getOperation(
				"Compare countries",
				"Series of several countries in request order; unknown names are skipped",
				[]object{{
					"name":     "country",
					"in":       "query",
					"required": true,
					"style":    "form",
					"explode":  true,
					"schema":   arrayOf(str),
				}},
				withOK(jsonResponse("Series", object{
					"type":       "object",
					"properties": object{"series": arrayOf(ref("CountrySeries"))},
				}), errorResponses(http.StatusBadRequest)),
			),
			"/health": getOperation(
				"Health check",
				"Check if the API is running",
				nil,
				object{"200": jsonResponse("API is healthy", object{
					"type": "object",
					"properties": object{
						"status":    str,
						"timestamp": str,
						"dates":     integer,
						"loaded_at": str,
					},
				})},
			),
			"/metrics": getOperation(
				"Prometheus metrics",
				"Prometheus metrics endpoint for monitoring",
				nil,
				object{"200": object{
					"description": "Prometheus metrics in text format",
					"content": object{
						"text/plain": object{"schema": str},
					},
				}},
			),
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	body, err := sonic.ConfigStd.Marshal(openAPIDocument())
	if err != nil {
		http.Error(w, "failed to encode specification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
