package swagger

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	apiTitle   = "Expense Tracker API"
	apiVersion = "1.0.0"
	bearerAuth = "bearerAuth"
)

func ref(name string, s *openapi3.Schema) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, s)
}

func object(required []string, props map[string]*openapi3.Schema) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for name, p := range props {
		s.WithProperty(name, p)
	}
	s.Required = required
	return s
}

func money() *openapi3.Schema {
	return openapi3.NewFloat64Schema()
}

func schemas() openapi3.Schemas {
	errorBody := object([]string{"type", "code", "message"}, map[string]*openapi3.Schema{
		"type":    openapi3.NewStringSchema(),
		"code":    openapi3.NewStringSchema(),
		"message": openapi3.NewStringSchema(),
		"details": openapi3.NewObjectSchema(),
	})

	expenseInput := object([]string{"title", "amount", "date", "type", "categoryId"}, map[string]*openapi3.Schema{
		"title":       openapi3.NewStringSchema().WithMaxLength(100),
		"amount":      money().WithMin(0.01).WithMax(9999999999.99),
		"description": openapi3.NewStringSchema().WithMaxLength(500).WithNullable(),
		"date":        openapi3.NewStringSchema().WithFormat("date"),
		"type":        openapi3.NewStringSchema().WithEnum("expense", "income"),
		"categoryId":  openapi3.NewInt64Schema(),
	})

	expense := object(nil, map[string]*openapi3.Schema{
		"id":           openapi3.NewInt64Schema(),
		"title":        openapi3.NewStringSchema(),
		"amount":       money(),
		"description":  openapi3.NewStringSchema().WithNullable(),
		"date":         openapi3.NewStringSchema().WithFormat("date"),
		"type":         openapi3.NewStringSchema().WithEnum("expense", "income"),
		"categoryId":   openapi3.NewInt64Schema(),
		"categoryName": openapi3.NewStringSchema(),
		"categoryIcon": openapi3.NewStringSchema(),
		"createdAt":    openapi3.NewDateTimeSchema(),
		"updatedAt":    openapi3.NewDateTimeSchema(),
	})

	categoryTotal := object(nil, map[string]*openapi3.Schema{
		"total": money(),
		"count": openapi3.NewIntegerSchema(),
	})

	summary := object(nil, map[string]*openapi3.Schema{
		"totalExpenses":   money(),
		"totalCount":      openapi3.NewIntegerSchema(),
		"categorySummary": openapi3.NewObjectSchema().WithAdditionalProperties(categoryTotal),
		"monthlyTotal":    money(),
	})

	category := object(nil, map[string]*openapi3.Schema{
		"id":        openapi3.NewInt64Schema(),
		"name":      openapi3.NewStringSchema(),
		"icon":      openapi3.NewStringSchema(),
		"createdAt": openapi3.NewDateTimeSchema(),
		"updatedAt": openapi3.NewDateTimeSchema(),
	})

	return openapi3.Schemas{
		"Error": openapi3.NewSchemaRef("", object([]string{"error"}, map[string]*openapi3.Schema{"error": errorBody})),
		"LoginRequest": openapi3.NewSchemaRef("", object([]string{"username", "password"}, map[string]*openapi3.Schema{
			"username": openapi3.NewStringSchema(),
			"password": openapi3.NewStringSchema().WithFormat("password"),
		})),
		"RegisterRequest": openapi3.NewSchemaRef("", object([]string{"username", "email", "password"}, map[string]*openapi3.Schema{
			"username": openapi3.NewStringSchema().WithMinLength(3).WithMaxLength(20),
			"email":    openapi3.NewStringSchema().WithFormat("email").WithMaxLength(50),
			"password": openapi3.NewStringSchema().WithFormat("password").WithMinLength(6).WithMaxLength(40),
		})),
		"AuthResponse": openapi3.NewSchemaRef("", object(nil, map[string]*openapi3.Schema{
			"token":    openapi3.NewStringSchema(),
			"type":     openapi3.NewStringSchema(),
			"id":       openapi3.NewInt64Schema(),
			"username": openapi3.NewStringSchema(),
			"email":    openapi3.NewStringSchema(),
		})),
		"Message": openapi3.NewSchemaRef("", object(nil, map[string]*openapi3.Schema{"message": openapi3.NewStringSchema()})),
		"User": openapi3.NewSchemaRef("", object(nil, map[string]*openapi3.Schema{
			"id":        openapi3.NewInt64Schema(),
			"username":  openapi3.NewStringSchema(),
			"email":     openapi3.NewStringSchema(),
			"createdAt": openapi3.NewDateTimeSchema(),
		})),
		"Category": openapi3.NewSchemaRef("", category),
		"CategoryInput": openapi3.NewSchemaRef("", object([]string{"name"}, map[string]*openapi3.Schema{
			"name": openapi3.NewStringSchema().WithMaxLength(100),
			"icon": openapi3.NewStringSchema().WithMaxLength(16),
		})),
		"ExpenseInput": openapi3.NewSchemaRef("", expenseInput),
		"Expense":      openapi3.NewSchemaRef("", expense),
		"Summary":      openapi3.NewSchemaRef("", summary),
	}
}

type opBuilder struct {
	op *openapi3.Operation
	s  openapi3.Schemas
}

func operation(s openapi3.Schemas, id, tag, summary string) *opBuilder {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	op.Tags = []string{tag}
	op.Responses = openapi3.NewResponsesWithCapacity(4)
	return &opBuilder{op: op, s: s}
}

func (b *opBuilder) secured() *opBuilder {
	sec := openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(bearerAuth))
	b.op.Security = sec
	return b.respond(401, "Missing or invalid token", "Error")
}

func (b *opBuilder) body(schema string) *opBuilder {
	b.op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref(schema, b.s[schema].Value)),
	}
	return b
}

func (b *opBuilder) param(p *openapi3.Parameter) *opBuilder {
	b.op.AddParameter(p)
	return b
}

// respond adds a response; an empty schema means no body, and an "[]"
// prefix means an array of that schema.
func (b *opBuilder) respond(status int, description, schema string) *opBuilder {
	resp := openapi3.NewResponse().WithDescription(description)
	switch {
	case schema == "":
	case schema[:2] == "[]":
		name := schema[2:]
		arr := openapi3.NewArraySchema()
		arr.Items = ref(name, b.s[name].Value)
		resp = resp.WithJSONSchema(arr)
	default:
		resp = resp.WithJSONSchemaRef(ref(schema, b.s[schema].Value))
	}
	b.op.AddResponse(status, resp)
	return b
}

func (b *opBuilder) build() *openapi3.Operation {
	return b.op
}

func idParam() *openapi3.Parameter {
	return openapi3.NewPathParameter("id").WithSchema(openapi3.NewInt64Schema())
}

// Document builds the OpenAPI description of the HTTP API.
func Document() *openapi3.T {
	s := schemas()

	listExpenses := operation(s, "listExpenses", "expenses", "List the caller's expenses, newest first").
		secured().
		param(openapi3.NewQueryParameter("categoryId").WithSchema(openapi3.NewInt64Schema())).
		param(openapi3.NewQueryParameter("type").WithSchema(openapi3.NewStringSchema().WithEnum("expense", "income"))).
		param(openapi3.NewQueryParameter("from").WithSchema(openapi3.NewStringSchema().WithFormat("date"))).
		param(openapi3.NewQueryParameter("to").WithSchema(openapi3.NewStringSchema().WithFormat("date"))).
		respond(200, "Expenses", "[]Expense").
		respond(400, "Invalid filter", "Error").
		build()

	createExpense := operation(s, "createExpense", "expenses", "Record an expense or income").
		secured().body("ExpenseInput").
		respond(201, "Created", "Expense").
		respond(400, "Validation failed", "Error").
		respond(422, "Unknown category or type", "Error").
		build()

	getExpense := operation(s, "getExpense", "expenses", "Fetch one expense").
		secured().param(idParam()).
		respond(200, "Expense", "Expense").
		respond(404, "Not found", "Error").
		build()

	updateExpense := operation(s, "updateExpense", "expenses", "Replace every field of an expense").
		secured().param(idParam()).body("ExpenseInput").
		respond(200, "Updated", "Expense").
		respond(400, "Validation failed", "Error").
		respond(404, "Not found", "Error").
		respond(422, "Unknown category or type", "Error").
		build()

	deleteExpense := operation(s, "deleteExpense", "expenses", "Delete an expense").
		secured().param(idParam()).
		respond(204, "Deleted", "").
		respond(404, "Not found", "Error").
		build()

	summary := operation(s, "getSummary", "expenses", "Totals overall, per category and for the current month").
		secured().
		respond(200, "Summary", "Summary").
		build()

	paths := openapi3.NewPaths(
		openapi3.WithPath("/api/auth/login", &openapi3.PathItem{
			Post: operation(s, "login", "auth", "Exchange credentials for a bearer token").
				body("LoginRequest").
				respond(200, "Token issued", "AuthResponse").
				respond(401, "Invalid credentials", "Error").
				respond(429, "Too many requests", "Error").
				build(),
		}),
		openapi3.WithPath("/api/auth/register", &openapi3.PathItem{
			Post: operation(s, "register", "auth", "Create an account").
				body("RegisterRequest").
				respond(201, "Registered", "Message").
				respond(400, "Validation failed", "Error").
				respond(409, "Username or email taken", "Error").
				build(),
		}),
		openapi3.WithPath("/api/categories", &openapi3.PathItem{
			Get: operation(s, "listCategories", "categories", "List the category catalog").
				respond(200, "Categories", "[]Category").
				build(),
			Post: operation(s, "createCategory", "categories", "Add a category").
				secured().body("CategoryInput").
				respond(201, "Created", "Category").
				respond(409, "Name taken", "Error").
				build(),
		}),
		openapi3.WithPath("/api/users/me", &openapi3.PathItem{
			Get: operation(s, "getCurrentUser", "users", "Profile of the caller").
				secured().
				respond(200, "User", "User").
				build(),
		}),
		openapi3.WithPath("/api/expenses", &openapi3.PathItem{Get: listExpenses, Post: createExpense}),
		openapi3.WithPath("/api/expenses/summary", &openapi3.PathItem{Get: summary}),
		openapi3.WithPath("/api/expenses/{id}", &openapi3.PathItem{Get: getExpense, Put: updateExpense, Delete: deleteExpense}),
		openapi3.WithPath("/api/health", &openapi3.PathItem{
			Get: operation(s, "health", "health", "Readiness").
				respond(200, "Healthy", "").
				respond(503, "Unhealthy", "").
				build(),
		}),
		openapi3.WithPath("/api/ping", &openapi3.PathItem{
			Get: operation(s, "ping", "health", "Liveness").respond(200, "Up", "").build(),
		}),
	)

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       apiTitle,
			Version:     apiVersion,
			Description: "Personal finance tracker: expenses, income, categories and summaries.",
		},
		Paths: paths,
		Components: &openapi3.Components{
			Schemas: s,
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerAuth: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
}

// DocumentHandler serves Document as JSON. The document is rendered once.
func DocumentHandler() http.HandlerFunc {
	var (
		once sync.Once
		body []byte
		err  error
	)
	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			body, err = json.Marshal(Document())
		})
		if err != nil {
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}
