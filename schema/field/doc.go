// Package field provides fluent builders for the columns of a schema.
//
// Each builder maps to one of the abstract column types of the convert
// package. The type drives both the DDL rendered by CreateTable and the
// conversion of values written to and read from the column:
//
//	field.Serial("id")                        // serial key
//	field.Integer("gallery_id")               // integer
//	field.String("name").Length(64)           // VARCHAR(64)
//	field.Text("description")                 // TEXT
//	field.Decimal("price").Precision(12, 2)   // DECIMAL(12,2)
//	field.Boolean("active").Default(false)    // BOOLEAN DEFAULT FALSE
//	field.Date("registered")                  // DATE
//	field.Datetime("created")                 // DATETIME or TIMESTAMP
//	field.UUID("token")                       // UUID or CHAR(36)
//
// # Field Options
//
//	field.String("email").
//	    Required().              // NOT NULL
//	    Default("unknown").      // DEFAULT 'unknown'
//	    Comment("User email")
//
// Columns are nullable unless Required is set, except serial keys.
//
// # Generated Values
//
// DefaultFunc and UpdateDefault compute values at write time, which the
// declarative Default cannot express:
//
//	field.Datetime("updated_at").
//	    DefaultFunc(func() any { return time.Now() }).
//	    UpdateDefault(func() any { return time.Now() })
package field
