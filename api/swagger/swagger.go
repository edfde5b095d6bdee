package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "UniReg API",
        "description": "University course registration backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Terms", "description": "Academic term management"},
        {"name": "Courses", "description": "Course catalog, prerequisites, unit-load policy"},
        {"name": "Selections", "description": "Course selection workflow"},
        {"name": "Grades", "description": "Grading and report cards"},
        {"name": "Users", "description": "Admin account management"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Describe the authenticated user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/password": {
            "put": {
                "tags": ["Auth"],
                "summary": "Change the current user's password",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Changed"}}
            }
        },
        "/terms": {
            "get": {
                "tags": ["Terms"],
                "summary": "List terms",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Terms"],
                "summary": "Create a term",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/terms/active": {
            "get": {
                "tags": ["Terms"],
                "summary": "Get the active term",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "No active term"}}
            }
        },
        "/terms/{id}": {
            "get": {
                "tags": ["Terms"],
                "summary": "Get a term",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Terms"],
                "summary": "Update a term",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Terms"],
                "summary": "Delete a term",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/terms/{id}/activation": {
            "patch": {
                "tags": ["Terms"],
                "summary": "Toggle term activation",
                "description": "Activating a term deactivates every other term.",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List catalog courses",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get a course with its prerequisites",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Update a course",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete a course",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/courses/{id}/prerequisites": {
            "post": {
                "tags": ["Courses"],
                "summary": "Add a prerequisite",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses/{id}/prerequisites/{prereqID}": {
            "delete": {
                "tags": ["Courses"],
                "summary": "Remove a prerequisite edge",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/unit-limit": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get the unit-load policy",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Rewrite the unit-load policy",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/selections": {
            "post": {
                "tags": ["Selections"],
                "summary": "Add a course to the draft schedule",
                "description": "Evaluates every selection rule; on failure the response lists all violations.",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Selected"}, "400": {"description": "Rule violations"}}
            }
        },
        "/selections/{courseID}": {
            "delete": {
                "tags": ["Selections"],
                "summary": "Remove a course from the draft schedule",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Dropped"}, "409": {"description": "Already finalized"}}
            }
        },
        "/selections/finalize": {
            "post": {
                "tags": ["Selections"],
                "summary": "Finalize the draft schedule",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Finalized"}, "412": {"description": "No courses selected"}}
            }
        },
        "/selections/draft": {
            "get": {
                "tags": ["Selections"],
                "summary": "List the draft schedule",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/selections/schedule": {
            "get": {
                "tags": ["Selections"],
                "summary": "Weekly schedule of selected courses",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses/{id}/students": {
            "get": {
                "tags": ["Selections"],
                "summary": "List students enrolled in a course",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses/{id}/students/{studentID}": {
            "delete": {
                "tags": ["Selections"],
                "summary": "Remove a student from a course",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Removed"}}
            }
        },
        "/courses/{id}/students/{studentID}/grade": {
            "put": {
                "tags": ["Grades"],
                "summary": "Record a score for a finalized selection",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses/{id}/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grades for a course",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/report-card": {
            "get": {
                "tags": ["Grades"],
                "summary": "Report card for a term",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/report-card/export": {
            "get": {
                "tags": ["Grades"],
                "summary": "Export the report card as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Users"],
                "summary": "Register a student or professor",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get a user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
