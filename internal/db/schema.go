package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- ANALYSIS JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS analysis_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS target_endpoint ON analysis_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON analysis_job TYPE string DEFAULT "created";
    DEFINE FIELD IF NOT EXISTS progress ON analysis_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS options ON analysis_job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS synthetic_inputs ON analysis_job TYPE array<object> DEFAULT [];
    -- Note: Must REMOVE then DEFINE to ensure FLEXIBLE is set (IF NOT EXISTS won't update existing field)
    REMOVE FIELD IF EXISTS synthetic_inputs.* ON analysis_job;
    DEFINE FIELD synthetic_inputs.* ON analysis_job TYPE object FLEXIBLE;  -- {record_id, features, generated_at}
    DEFINE FIELD IF NOT EXISTS model_outputs ON analysis_job TYPE array<object> DEFAULT [];
    REMOVE FIELD IF EXISTS model_outputs.* ON analysis_job;
    DEFINE FIELD model_outputs.* ON analysis_job TYPE object FLEXIBLE;  -- {record_id, raw_response, decision_score, received_at}
    DEFINE FIELD IF NOT EXISTS results ON analysis_job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error_detail ON analysis_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON analysis_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON analysis_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON analysis_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_status ON analysis_job FIELDS status;
    DEFINE INDEX IF NOT EXISTS job_created_at ON analysis_job FIELDS created_at;
`
