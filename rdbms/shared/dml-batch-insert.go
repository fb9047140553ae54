package shared

import (
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/helper"
	"github.com/pkg/errors"
)

// SqlInsertTxtBatch is the PostgreSQL implementation of interface SqlStmtTxtBatcher.
// It generates multi-row INSERT statements that skip rows conflicting on the key columns,
// which makes a reload of the same rows a no-op.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string // list of columns extracted from SqlStatementGeneratorConfig.
}

// NewInsertGenerator creates a new SqlStmtGenerator that implements interface SqlStmtTxtBatcher.
func (*DmlGeneratorTxtBatch) NewInsertGenerator(cfg *SqlStatementGeneratorConfig) (SqlStmtGenerator, error) {
	if err := FixSqlStatementGeneratorConfig(cfg); err != nil {
		return nil, err
	}
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	o.setupSqlStatement()
	return o, nil
}

func (o *SqlInsertTxtBatch) setupSqlStatement() {
	// Build the list of column names.
	var keyCols, otherCols []string
	if o.TargetKeyCols != nil {
		keyCols = helper.OrderedMapValuesToStringSlice(o.TargetKeyCols)
	}
	if o.TargetOtherCols != nil {
		otherCols = helper.OrderedMapValuesToStringSlice(o.TargetOtherCols)
	}
	o.ColList = append(append(make([]string, 0, len(keyCols)+len(otherCols)), keyCols...), otherCols...)
	// Populate the SQL template.
	o.sqlStmtTemplate = `insert into <TABLE> (<TGT-COLS>) values <VALUES> on conflict <KEYS>do nothing`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", QuoteTable(o.OutputSchema, o.OutputTable), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(QuoteColumns(o.ColList), ","), 1)
	if len(keyCols) > 0 { // if there is an explicit conflict target...
		o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<KEYS>", "("+strings.Join(QuoteColumns(keyCols), ",")+") ", 1)
	} else { // else any unique constraint will do...
		o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<KEYS>", "", 1)
	}
	o.sqlStmtCache = make(map[int]string)
	if o.Log != nil {
		o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
	}
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.batchSize = batchSize
	o.rowsInBatch = 0
	// Allocate a new buffer to hold all values (args) to exec.
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.ColList)) // many values per row in a batch.
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in INSERT batch")
		batchIsFull = true
		return
	}
	if len(values) != len(o.ColList) {
		err = errors.New("the number of values supplied does not match the number of table columns")
		return
	}
	// Append values to buffer.
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++ // keep track of how close we are to the batch limit.
	batchIsFull = o.rowsInBatch >= o.batchSize
	return
}

func (o *SqlInsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

func (o *SqlInsertTxtBatch) GetColumns() []string {
	return o.ColList
}

// GetStatement returns the INSERT for the rows added since InitBatch.
// Statements are cached by row count so the final, shorter, batch gets its own SQL.
func (o *SqlInsertTxtBatch) GetStatement() string {
	stmt, ok := o.sqlStmtCache[o.rowsInBatch]
	if !ok {
		stmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", getValuesList(o.rowsInBatch, len(o.ColList)), 1)
		o.sqlStmtCache[o.rowsInBatch] = stmt
	}
	return stmt
}
