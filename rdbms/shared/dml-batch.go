package shared

import (
	"fmt"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	om "github.com/cevaris/ordered_map"
)

// MaxBindParameters is the most bind parameters PostgreSQL accepts in one statement.
const MaxBindParameters = 65535

type DmlGeneratorTxtBatch struct{}

type SqlStatementGeneratorConfig struct {
	Log             logger.Logger
	OutputSchema    string
	OutputTable     string
	TargetKeyCols   *om.OrderedMap // ordered map of: key = record field name; value = target table column name. These form the conflict target.
	TargetOtherCols *om.OrderedMap // ordered map of: key = record field name; value = target table column name
}

type sqlCoreCfg struct {
	sqlStmtTemplate string
	sqlStmtCache    map[int]string // generated statements keyed by number of rows.
	sqlValues       []interface{}  // slice to hold data values for all rows in batch
	batchSize       int
	rowsInBatch     int
}

// getValuesList returns "($1,$2),($3,$4)" for numRows rows of numCols bind variables.
func getValuesList(numRows int, numCols int) string {
	allRows := strings.Builder{}
	valIdx := 1
	for rowIdx := 0; rowIdx < numRows; rowIdx++ { // for each row...
		if rowIdx > 0 {
			allRows.WriteString(",")
		}
		allRows.WriteString("(")
		for idy := 0; idy < numCols; idy++ { // for each value in the current row...
			if idy > 0 {
				allRows.WriteString(",")
			}
			allRows.WriteString(fmt.Sprintf("$%v", valIdx))
			valIdx++
		}
		allRows.WriteString(")")
	}
	return allRows.String()
}
